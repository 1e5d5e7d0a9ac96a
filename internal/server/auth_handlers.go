package server

import (
	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
// @Summary Register an account
// @Description Create an account keyed by phone number. The role is left unset.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration request"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	res, err := s.accountService.Register(c.UserContext(), service.RegisterInput{
		Phone:    req.Phone,
		Name:     req.Name,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Authenticate with phone and password and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} service.AuthResult
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	res, err := s.accountService.Authenticate(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Logout handles POST /api/auth/logout
// @Summary Log out
// @Description Revoke the presented bearer token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	if claims == nil || claims.ExpiresAt == nil {
		return respondError(c, models.NewUnauthorizedError("Authorization required"))
	}
	if err := s.accountService.Logout(c.UserContext(), claims.ID, claims.ExpiresAt.Time); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
