package server

import (
	"pulsevote/internal/feed"
	"pulsevote/internal/middleware"
	"pulsevote/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed. tags filters by preference IDs; with no tags
// and mine=1 the viewer's saved preferences are used.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	ctx := c.UserContext()
	viewer := middleware.UserID(c)

	tags := splitCSV(c.Query("tags"))
	if len(tags) == 0 && c.QueryBool("mine") && viewer != "" {
		saved, err := s.preferenceService.ListUserPreferences(ctx, viewer)
		if err != nil {
			return respondError(c, err)
		}
		tags = saved
	}

	p := s.aggregator.FetchFeed(ctx, viewer, tags)
	return c.JSON(fiber.Map{"surveys": p.Surveys()})
}

// GetSurvey handles GET /api/surveys/:id, the share-link target.
func (s *Server) GetSurvey(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := s.aggregator.FetchSurvey(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	survey, _ := p.Get(id)
	return c.JSON(survey)
}

// mutate loads the survey for the caller, runs op against a fresh
// reconciler and writes {message, survey}.
func (s *Server) mutate(c *fiber.Ctx, op func(r *feed.Reconciler, p *feed.Projection, surveyID string) error) error {
	ctx := c.UserContext()
	id := c.Params("id")
	p, err := s.aggregator.FetchSurvey(ctx, middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}

	notices := &feed.NoticeRecorder{}
	r := feed.NewReconciler(s.interactionRepo, s.aggregator, notices, s.notifier)
	if err := op(r, p, id); err != nil {
		return respondError(c, err)
	}
	survey, _ := p.Get(id)
	return c.JSON(fiber.Map{"message": notices.Message(), "survey": survey})
}

// Vote handles POST /api/surveys/:id/votes.
func (s *Server) Vote(c *fiber.Ctx) error {
	var req struct {
		OptionID string `json:"optionId"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	if req.OptionID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("optionId is required"))
	}
	return s.mutate(c, func(r *feed.Reconciler, p *feed.Projection, id string) error {
		return r.Vote(c.UserContext(), p, id, req.OptionID)
	})
}

// React handles POST /api/surveys/:id/reactions.
func (s *Server) React(c *fiber.Ctx) error {
	var req struct {
		Kind string `json:"kind"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	kind, _ := models.ParseReactionKind(req.Kind)
	return s.mutate(c, func(r *feed.Reconciler, p *feed.Projection, id string) error {
		return r.React(c.UserContext(), p, id, kind)
	})
}

// CreateComment handles POST /api/surveys/:id/comments.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if !parseBody(c, &req) {
		return nil
	}
	return s.mutate(c, func(r *feed.Reconciler, p *feed.Projection, id string) error {
		return r.Comment(c.UserContext(), p, id, req.Content)
	})
}

// GetShareLink handles GET /api/surveys/:id/share.
func (s *Server) GetShareLink(c *fiber.Ctx) error {
	link, err := s.groupService.ShareLink(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"url": link})
}
