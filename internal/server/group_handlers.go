package server

import (
	"pulsevote/internal/middleware"
	"pulsevote/internal/models"
	"pulsevote/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListGroups handles GET /api/groups.
func (s *Server) ListGroups(c *fiber.Ctx) error {
	groups, err := s.groupService.ListGroups(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groups)
}

// CreateGroup handles POST /api/groups.
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	group, err := s.groupService.CreateGroup(c.UserContext(), service.CreateGroupInput{
		UserID:      middleware.UserID(c),
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// DeleteGroup handles DELETE /api/groups/:id.
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	if err := s.groupService.DeleteGroup(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddGroupMember handles POST /api/groups/:id/members.
func (s *Server) AddGroupMember(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	member, err := s.groupService.AddMemberByEmail(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

// RemoveGroupMember handles DELETE /api/groups/:id/members/:userId.
func (s *Server) RemoveGroupMember(c *fiber.Ctx) error {
	err := s.groupService.RemoveMember(c.UserContext(), middleware.UserID(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListGroupSurveys handles GET /api/groups/:id/surveys.
func (s *Server) ListGroupSurveys(c *fiber.Ctx) error {
	surveys, err := s.groupService.ListGroupSurveys(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if surveys == nil {
		surveys = []*models.SurveyWithDetails{}
	}
	return c.JSON(surveys)
}

// CreateGroupSurvey handles POST /api/groups/:id/surveys.
func (s *Server) CreateGroupSurvey(c *fiber.Ctx) error {
	var req service.CreateGroupSurveyInput
	if !parseBody(c, &req) {
		return nil
	}
	survey, err := s.groupService.CreateGroupSurvey(c.UserContext(), middleware.UserID(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(survey)
}
