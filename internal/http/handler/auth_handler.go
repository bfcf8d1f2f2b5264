package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/SnipURL/internal/app/apperr"
	"github.com/sifan077/SnipURL/internal/app/model"
	"github.com/sifan077/SnipURL/internal/app/service"
	httpUtil "github.com/sifan077/SnipURL/internal/http/util"
	"go.uber.org/zap"
)

// AuthDeps groups dependencies required by the auth handlers.
type AuthDeps struct {
	Logger *zap.Logger
	Auth   service.AuthService
}

// AuthHandler implements registration and login.
type AuthHandler struct {
	logger *zap.Logger
	auth   service.AuthService
}

// NewAuthHandler creates an auth handler with the provided dependencies.
func NewAuthHandler(deps AuthDeps) *AuthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{logger: logger, auth: deps.Auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return httpUtil.WriteError(c, h.logger, apperr.Validation("invalid request body"))
	}

	user, token, err := h.auth.Register(reqCtx(c), req.Email, req.Password)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID))
	return c.Status(fiber.StatusCreated).JSON(newAuthResponse(user, token))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return httpUtil.WriteError(c, h.logger, apperr.Validation("invalid request body"))
	}

	user, token, err := h.auth.Login(reqCtx(c), req.Email, req.Password)
	if err != nil {
		return httpUtil.WriteError(c, h.logger, err)
	}

	return c.JSON(newAuthResponse(user, token))
}

func newAuthResponse(user *model.User, token string) authResponse {
	return authResponse{
		Token: token,
		User: userResponse{
			ID:        user.ID,
			Email:     user.Email,
			Role:      user.Role,
			CreatedAt: user.CreatedAt,
		},
	}
}
