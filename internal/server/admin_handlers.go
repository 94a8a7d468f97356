package server

import (
	"pulsevote/internal/middleware"
	"pulsevote/internal/service"
	"pulsevote/internal/suggest"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns the flag snapshot for the calling admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(middleware.UserID(c)))
}

// GenerateSuggestions handles POST /api/admin/suggestions.
func (s *Server) GenerateSuggestions(c *fiber.Ctx) error {
	var req struct {
		Country  string `json:"country"`
		Category string `json:"category"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	drafts, err := s.publisher.Suggest(c.UserContext(), middleware.UserID(c), req.Country, req.Category)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"suggestions": drafts})
}

// GenerateImage handles POST /api/admin/images.
func (s *Server) GenerateImage(c *fiber.Ctx) error {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	url, err := s.publisher.Illustrate(c.UserContext(), middleware.UserID(c), req.Prompt)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"imageUrl": url})
}

// PublishSurvey handles POST /api/admin/surveys.
func (s *Server) PublishSurvey(c *fiber.Ctx) error {
	var req service.PublishSurveyInput
	if !parseBody(c, &req) {
		return nil
	}
	survey, err := s.publisher.PublishManual(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(survey)
}

// PublishDraft handles POST /api/admin/suggestions/publish.
func (s *Server) PublishDraft(c *fiber.Ctx) error {
	var req struct {
		Draft         suggest.Draft `json:"draft"`
		ImageURL      string        `json:"imageUrl"`
		TargetCountry string        `json:"targetCountry"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	survey, err := s.publisher.PublishDraft(c.UserContext(), middleware.UserID(c), req.Draft, req.ImageURL, req.TargetCountry)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(survey)
}

// AutoPublish handles POST /api/admin/auto-publish.
func (s *Server) AutoPublish(c *fiber.Ctx) error {
	var req struct {
		Region string `json:"region"`
	}
	if len(c.Body()) > 0 && !parseBody(c, &req) {
		return nil
	}
	if req.Region == "" {
		req.Region = s.config.AutoPublishRegion
	}
	res, err := s.publisher.AutoPublish(c.UserContext(), req.Region)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
