package server

import (
	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/service"

	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	ChoiceID uint `json:"choice_id"`
}

// VotePoll handles POST /api/polls/:id/vote
// @Summary Vote in a poll
// @Description One vote per account and poll; a second vote is rejected with 409
// @Tags polls
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Poll ID"
// @Param request body voteRequest true "Choice"
// @Success 201 {object} models.Poll
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /polls/{id}/vote [post]
func (s *Server) VotePoll(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	pollID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req voteRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	poll, err := s.pollService.Vote(c.UserContext(), service.VoteInput{
		AccountID: accountID,
		PollID:    pollID,
		ChoiceID:  req.ChoiceID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(poll)
}

// GetPollResults handles GET /api/polls/:id/results
// @Summary Poll results
// @Description Choices in order with vote counts, the total and the viewer's choice
// @Tags polls
// @Produce json
// @Param id path int true "Poll ID"
// @Success 200 {object} models.Poll
// @Failure 404 {object} models.ErrorResponse
// @Router /polls/{id}/results [get]
func (s *Server) GetPollResults(c *fiber.Ctx) error {
	pollID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	poll, err := s.pollService.Results(c.UserContext(), pollID, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(poll)
}
