package suggest

import (
	"errors"
	"net/http"
)

// Bridge errors. Handlers map them with StatusFor and Message.
var (
	ErrNotConfigured      = errors.New("ai generation is not configured")
	ErrRateLimited        = errors.New("ai gateway rate limited the request")
	ErrPaymentRequired    = errors.New("ai gateway requires payment")
	ErrUpstream           = errors.New("ai gateway error")
	ErrInvalidSuggestions = errors.New("ai returned too few valid suggestions")
	ErrNoImage            = errors.New("no image generated")
)

// StatusFor maps a bridge error to the HTTP status returned to the caller.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrInvalidSuggestions), errors.Is(err, ErrNoImage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the user-facing text for a bridge error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "Rate limits exceeded, please try again later."
	case errors.Is(err, ErrPaymentRequired):
		return "Payment required, please add funds to your workspace."
	case errors.Is(err, ErrNotConfigured):
		return "AI generation is not configured"
	case errors.Is(err, ErrInvalidSuggestions):
		return "Failed to parse AI response"
	case errors.Is(err, ErrNoImage):
		return "No image generated"
	default:
		return "AI generation failed"
	}
}
