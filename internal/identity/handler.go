package identity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wearzy/wearzy/internal/apperr"
)

// Handler exposes account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type profileRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}

type profileResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

type userResponse struct {
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

var errBadBody = apperr.New(apperr.KindValidation, "Invalid request body")

// Register handles account creation.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}
	user, err := h.service.Register(c.UserContext(), Registration{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(profileResponse{
		Message: "Registered successfully",
		Name:    user.Name,
		Email:   user.Email,
	})
}

// UpdateProfile handles name/email edits for the user in the path.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}
	// A malformed id cannot match any row.
	id, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		id = 0
	}
	profile, err := h.service.UpdateProfile(c.UserContext(), id, Profile{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(profileResponse{
		Message: "Data updated successfully",
		Name:    profile.Name,
		Email:   profile.Email,
	})
}

// List returns every account without password digests.
func (h *Handler) List(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{UserID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	return c.Status(http.StatusOK).JSON(out)
}
