package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/boncukgram/boncuk/pkg/core"
)

type Envelope struct {
	Error *core.Error `json:"error"`
}

func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Context timeouts/cancellation.
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request cancelled",
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, StatusFromType(coreErr.Type)
	}

	// Unknown errors: treat as internal API error (do not leak details by default).
	return &core.Error{
		Type:      core.ErrAPI,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

// StatusFromType maps an error type to the HTTP status returned for it.
func StatusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest, core.ErrDecode:
		return http.StatusBadRequest
	case core.ErrAuthentication:
		return http.StatusUnauthorized
	case core.ErrPermissionDenied:
		return http.StatusForbidden
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrDeviceUnavailable:
		return http.StatusConflict
	case core.ErrRateLimit:
		return http.StatusTooManyRequests
	case core.ErrCredentialMissing:
		return http.StatusServiceUnavailable
	case core.ErrOverloaded:
		return 529
	case core.ErrConnection, core.ErrAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
