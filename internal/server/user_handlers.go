package server

import (
	"farmlink/internal/middleware"
	"farmlink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profile
// @Summary Get own profile
// @Description Returns every profile field; fields of other roles are empty strings
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ProfileView
// @Failure 401 {object} models.ErrorResponse
// @Router /profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	view, err := s.accountService.GetProfile(c.UserContext(), accountID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// UpdateMyProfile handles PUT and PATCH /api/profile
// @Summary Update own profile
// @Description Merges the supplied fields. A non-empty role replaces the role and its profile.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object true "Profile fields"
// @Success 200 {object} models.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Router /profile [put]
// @Router /profile [patch]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	fields, err := parseStringFields(c.Body())
	if err != nil {
		return respondError(c, err)
	}

	view, err := s.accountService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		AccountID: accountID,
		Fields:    fields,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}
