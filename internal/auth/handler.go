package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/wearzy/wearzy/internal/apperr"
	"github.com/wearzy/wearzy/internal/identity"
)

// ClaimsLocalsKey is where the bearer middleware stores verified Claims.
const ClaimsLocalsKey = "auth.claims"

// Handler exposes login and profile endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type profileResponse struct {
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Login validates credentials and returns a signed token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindValidation, "Invalid request body")
	}
	res, err := h.svc.Login(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(loginResponse{Message: "Login successfully", Token: res.Token})
}

// Profile echoes the claims of the verified token.
func (h *Handler) Profile(c *fiber.Ctx) error {
	claims, ok := c.Locals(ClaimsLocalsKey).(Claims)
	if !ok {
		return apperr.New(apperr.KindInvalidToken, MsgUnauthorized)
	}
	resp := profileResponse{UserID: claims.UserID, Name: claims.Name, Email: claims.Email}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return c.Status(http.StatusOK).JSON(resp)
}
