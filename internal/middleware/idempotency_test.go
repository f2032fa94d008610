package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wearzy/wearzy/internal/apperr"
	"github.com/wearzy/wearzy/internal/logging"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return cache, mr
}

func setupIdempotencyApp(t *testing.T) (*fiber.App, *int) {
	t.Helper()
	cache, _ := newTestRedis(t)
	logger := logging.Discard()

	calls := 0
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/api/user/register", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})
	app.Post("/api/fail", func(c *fiber.Ctx) error {
		calls++
		return apperr.New(apperr.KindConflict, "taken")
	})
	return app, &calls
}

func postWithKey(t *testing.T, app *fiber.App, path, key string) (int, string, string) {
	t.Helper()
	return postBodyWithKey(t, app, path, key, "{}")
}

func postBodyWithKey(t *testing.T, app *fiber.App, path, key, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
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
	return resp.StatusCode, string(raw), resp.Header.Get("Idempotent-Replayed")
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	postWithKey(t, app, "/api/user/register", "")
	status, _, replayed := postWithKey(t, app, "/api/user/register", "")

	if status != fiber.StatusCreated || replayed != "" || *calls != 2 {
		t.Fatalf("expected two fresh calls, got status %d replayed %q calls %d", status, replayed, *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, first, _ := postWithKey(t, app, "/api/user/register", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status, second, replayed := postWithKey(t, app, "/api/user/register", "abc123")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if second != first || replayed != "true" {
		t.Fatalf("expected replay of %s, got %s (replayed=%q)", first, second, replayed)
	}
	if *calls != 1 {
		t.Fatalf("handler should run once, ran %d times", *calls)
	}
}

func TestIdempotencyKeysAreScopedByPath(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	postWithKey(t, app, "/api/user/register", "same")
	status, _, replayed := postWithKey(t, app, "/api/fail", "same")

	if status != fiber.StatusConflict || replayed != "" || *calls != 2 {
		t.Fatalf("expected fresh call on other path, got status %d replayed %q calls %d", status, replayed, *calls)
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	postWithKey(t, app, "/api/fail", "retry-me")
	status, body, _ := postWithKey(t, app, "/api/fail", "retry-me")

	if status != fiber.StatusConflict || !strings.Contains(body, "taken") || *calls != 2 {
		t.Fatalf("expected handler to rerun after error, got status %d body %s calls %d", status, body, *calls)
	}
}

func TestIdempotencyInProgressConflict(t *testing.T) {
	cache, mr := newTestRedis(t)
	logger := logging.Discard()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/api/user/register", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	if err := mr.Set(idempotencyPrefix+"POST:/api/user/register:busy", inProgressMarker); err != nil {
		t.Fatalf("seed: %v", err)
	}

	status, _, _ := postWithKey(t, app, "/api/user/register", "busy")
	if status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, _, _ := postBodyWithKey(t, app, "/api/user/register", "reg-1", `{"email":"bob@x.com"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
	}

	status, body, replayed := postBodyWithKey(t, app, "/api/user/register", "reg-1", `{"email":"cat@x.com"}`)
	if status != fiber.StatusUnprocessableEntity || replayed != "" {
		t.Fatalf("expected 422 without replay, got status %d replayed %q body %s", status, replayed, body)
	}
	if *calls != 1 {
		t.Fatalf("handler must not rerun for a mismatched body, ran %d times", *calls)
	}

	status, _, replayed = postBodyWithKey(t, app, "/api/user/register", "reg-1", `{"email":"bob@x.com"}`)
	if status != fiber.StatusCreated || replayed != "true" {
		t.Fatalf("same body should still replay, got status %d replayed %q", status, replayed)
	}
}
