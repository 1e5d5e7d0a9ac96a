package server

import (
	"farmlink/internal/middleware"
	"farmlink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAdminStats handles GET /api/admin/stats
// @Summary Dashboard statistics
// @Description Counts from one consistent snapshot; every role key is present
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Stats
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/stats [get]
func (s *Server) GetAdminStats(c *fiber.Ctx) error {
	stats, err := s.statsService.ComputeStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetAdminUsers handles GET /api/admin/users
// @Summary List accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role, or unassigned"
// @Param q query string false "Phone, name or email search"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.UserPage
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	users, err := s.adminService.ListUsers(c.UserContext(), service.ListUsersInput{
		Role:   c.Query("role"),
		Query:  c.Query("q"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// GetAdminUser handles GET /api/admin/users/:id
// @Summary Get an account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id} [get]
func (s *Server) GetAdminUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.adminService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// UpdateAdminUser handles PATCH /api/admin/users/:id
// @Summary Edit an account
// @Description Role, is_active, name, email and profile fields
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body object true "Fields"
// @Success 200 {object} models.ProfileView
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/users/{id} [patch]
func (s *Server) UpdateAdminUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	fields, err := parseStringFields(c.Body())
	if err != nil {
		return respondError(c, err)
	}
	view, err := s.adminService.UpdateUser(c.UserContext(), id, fields)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// DeleteAdminUser handles DELETE /api/admin/users/:id
// @Summary Delete an account
// @Description Removes the account with its posts, comments, likes, saves and votes
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/users/{id} [delete]
func (s *Server) DeleteAdminUser(c *fiber.Ctx) error {
	actorID, _ := middleware.CurrentAccountID(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeleteUser(c.UserContext(), actorID, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAdminBlogs handles GET /api/admin/blogs
// @Summary List every post
// @Description Includes followers-only posts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /admin/blogs [get]
func (s *Server) GetAdminBlogs(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	authorID := c.QueryInt("author_id", 0)
	if authorID < 0 {
		authorID = 0
	}
	posts, err := s.postService.ListAllPosts(c.UserContext(), service.ListPostsInput{
		ViewerID: viewerID(c),
		AuthorID: uint(authorID),
		Tag:      c.Query("tag"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// DeleteAdminBlog handles DELETE /api/admin/blogs/:id
// @Summary Remove a post
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Router /admin/blogs/{id} [delete]
func (s *Server) DeleteAdminBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.ModeratePost(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
