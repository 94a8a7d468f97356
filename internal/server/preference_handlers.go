package server

import (
	"pulsevote/internal/middleware"
	"pulsevote/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPreferences handles GET /api/preferences.
func (s *Server) ListPreferences(c *fiber.Ctx) error {
	return c.JSON(s.preferenceService.ListPreferences(c.UserContext()))
}

// ListMyPreferences handles GET /api/me/preferences.
func (s *Server) ListMyPreferences(c *fiber.Ctx) error {
	ids, err := s.preferenceService.ListUserPreferences(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"preferenceIds": ids})
}

// TogglePreference handles POST /api/me/preferences/:id/toggle.
func (s *Server) TogglePreference(c *fiber.Ctx) error {
	ids, err := s.preferenceService.Toggle(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"preferenceIds": ids})
}

// ReplaceMyPreferences handles PUT /api/me/preferences.
func (s *Server) ReplaceMyPreferences(c *fiber.Ctx) error {
	var req struct {
		PreferenceIDs []string `json:"preferenceIds"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	ids, err := s.preferenceService.ReplaceAll(c.UserContext(), middleware.UserID(c), req.PreferenceIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"preferenceIds": ids})
}

// CreatePreference handles POST /api/admin/preferences.
func (s *Server) CreatePreference(c *fiber.Ctx) error {
	var req service.CreatePreferenceInput
	if !parseBody(c, &req) {
		return nil
	}
	pref, err := s.preferenceService.CreatePreference(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pref)
}
