package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/boncukgram/boncuk/pkg/core"
)

// mapError converts genai and transport errors into core errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return core.NewConnectionError("gemini request failed", err)
	}

	msg := apiErr.Message
	if msg == "" {
		msg = fmt.Sprintf("gemini returned status %d", apiErr.Code)
	}
	var ce *core.Error
	switch apiErr.Code {
	case http.StatusBadRequest:
		ce = core.NewInvalidRequestError(msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		ce = core.NewAuthenticationError(msg, err)
	case http.StatusNotFound:
		ce = core.NewNotFoundError(msg)
	case http.StatusTooManyRequests:
		ce = core.NewRateLimitError(msg, err)
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		ce = core.NewOverloadedError(msg, err)
	default:
		ce = core.NewAPIError(msg, err)
	}
	ce.Code = apiErr.Status
	return ce
}
