package server

import (
	"farmlink/internal/models"
	"farmlink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetSchemes handles GET /api/schemes and GET /api/admin/schemes
// @Summary List government schemes
// @Tags schemes
// @Produce json
// @Success 200 {array} models.GovernmentScheme
// @Router /schemes [get]
func (s *Server) GetSchemes(c *fiber.Ctx) error {
	schemes, err := s.schemeService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(schemes)
}

// GetScheme handles GET /api/schemes/:id
// @Summary Get a government scheme
// @Tags schemes
// @Produce json
// @Param id path int true "Scheme ID"
// @Success 200 {object} models.GovernmentScheme
// @Failure 404 {object} models.ErrorResponse
// @Router /schemes/{id} [get]
func (s *Server) GetScheme(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	scheme, err := s.schemeService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(scheme)
}

// CreateScheme handles POST /api/admin/schemes
// @Summary Create a government scheme
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SchemeInput true "Scheme"
// @Success 201 {object} models.GovernmentScheme
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/schemes [post]
func (s *Server) CreateScheme(c *fiber.Ctx) error {
	var in service.SchemeInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	scheme, err := s.schemeService.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(scheme)
}

// UpdateScheme handles PUT /api/admin/schemes/:id
// @Summary Replace a government scheme
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Scheme ID"
// @Param request body service.SchemeInput true "Scheme"
// @Success 200 {object} models.GovernmentScheme
// @Router /admin/schemes/{id} [put]
func (s *Server) UpdateScheme(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.SchemeInput
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	scheme, err := s.schemeService.Update(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(scheme)
}

// DeleteScheme handles DELETE /api/admin/schemes/:id
// @Summary Delete a government scheme
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Scheme ID"
// @Success 204
// @Router /admin/schemes/{id} [delete]
func (s *Server) DeleteScheme(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.schemeService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
