package server

import (
	"errors"
	"strings"

	"pulsevote/internal/feed"
	"pulsevote/internal/models"
	"pulsevote/internal/suggest"

	"github.com/gofiber/fiber/v2"
)

var suggestErrors = []error{
	suggest.ErrNotConfigured,
	suggest.ErrRateLimited,
	suggest.ErrPaymentRequired,
	suggest.ErrUpstream,
	suggest.ErrInvalidSuggestions,
	suggest.ErrNoImage,
}

func isSuggestError(err error) bool {
	for _, target := range suggestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError writes err with the status its type maps to.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, feed.ErrEmptyComment):
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Comment cannot be empty"))
	case isSuggestError(err):
		return c.Status(suggest.StatusFor(err)).JSON(models.ErrorResponse{Error: suggest.Message(err)})
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// parseBody decodes the request body into dest. On failure it writes a 400
// and returns false.
func parseBody(c *fiber.Ctx, dest any) bool {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return false
	}
	return true
}

// splitCSV splits a comma-separated query value, dropping blanks.
func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
