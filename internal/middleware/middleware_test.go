package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/wearzy/wearzy/internal/apperr"
	"github.com/wearzy/wearzy/internal/auth"
	"github.com/wearzy/wearzy/internal/logging"
)

func doGet(t *testing.T, app *fiber.App, path string, headers map[string]string) (int, map[string]any, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body, resp.Header.Get(requestIDHeader)
}

func TestErrorHandlerMapping(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return apperr.New(apperr.KindConflict, "This email address is already registered.")
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return apperr.Internal(errors.New(`pq: relation "users" does not exist`))
	})
	app.Get("/raw", func(c *fiber.Ctx) error {
		return errors.New("SELECT * FROM users failed")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTooManyRequests, "slow down")
	})

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/conflict", fiber.StatusConflict, "This email address is already registered."},
		{"/internal", fiber.StatusInternalServerError, apperr.InternalMessage},
		{"/raw", fiber.StatusInternalServerError, apperr.InternalMessage},
		{"/fiber", fiber.StatusTooManyRequests, "slow down"},
		{"/missing", fiber.StatusNotFound, "Cannot GET /missing"},
	}
	for _, tc := range cases {
		status, body, _ := doGet(t, app, tc.path, nil)
		if status != tc.status || body["message"] != tc.message {
			t.Fatalf("%s: got %d %v, want %d %q", tc.path, status, body, tc.status, tc.message)
		}
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = RequestIDFrom(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	_, _, generated := doGet(t, app, "/", nil)
	if generated == "" || generated != seen {
		t.Fatalf("expected generated id to be exposed, header %q locals %q", generated, seen)
	}

	_, _, echoed := doGet(t, app, "/", map[string]string{requestIDHeader: "req-42"})
	if echoed != "req-42" || seen != "req-42" {
		t.Fatalf("expected echoed id, header %q locals %q", echoed, seen)
	}
}

type stubVerifier struct {
	claims auth.Claims
	token  string
}

func (v stubVerifier) VerifyProfileToken(_ context.Context, token string) (auth.Claims, error) {
	if token != v.token {
		return auth.Claims{}, apperr.Wrap(apperr.KindInvalidToken, auth.MsgUnauthorized, auth.ErrTokenInvalid)
	}
	return v.claims, nil
}

func TestBearerAuth(t *testing.T) {
	verifier := stubVerifier{token: "good", claims: auth.Claims{UserID: 7, Name: "Ann", Email: "ann@x.com"}}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Get("/profile", BearerAuth(verifier), func(c *fiber.Ctx) error {
		claims := c.Locals(auth.ClaimsLocalsKey).(auth.Claims)
		return c.JSON(fiber.Map{"userId": claims.UserID})
	})

	for _, header := range []string{"good", "Bearer good", "bearer  good "} {
		status, body, _ := doGet(t, app, "/profile", map[string]string{fiber.HeaderAuthorization: header})
		if status != fiber.StatusOK || body["userId"] != float64(7) {
			t.Fatalf("header %q: got %d %v", header, status, body)
		}
	}

	for _, header := range []string{"", "Bearer ", "bad", "Bearer bad"} {
		status, body, _ := doGet(t, app, "/profile", map[string]string{fiber.HeaderAuthorization: header})
		if status != fiber.StatusBadRequest || body["message"] != auth.MsgUnauthorized {
			t.Fatalf("header %q: got %d %v", header, status, body)
		}
	}
}

func TestExtractToken(t *testing.T) {
	cases := map[string]string{
		"abc":         "abc",
		"Bearer abc":  "abc",
		"BEARER abc":  "abc",
		" bearer abc": "abc",
		"Bearer":      "Bearer",
		"":            "",
	}
	for in, want := range cases {
		if got := extractToken(in); got != want {
			t.Fatalf("extractToken(%q) = %q, want %q", in, got, want)
		}
	}
}
