package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/boncukgram/boncuk/pkg/core"
	"github.com/boncukgram/boncuk/pkg/gateway/apierror"
	"github.com/boncukgram/boncuk/pkg/gateway/mw"
)

func coreErrorFrom(err error, reqID string) (*core.Error, int) {
	return apierror.FromError(err, reqID)
}

func writeCoreErrorJSON(w http.ResponseWriter, reqID string, coreErr *core.Error, status int) {
	if coreErr != nil && coreErr.RequestID == "" {
		coreErr.RequestID = reqID
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apierror.Envelope{Error: coreErr})
}

// writeErr converts err and writes it. Server-side failures are logged;
// client errors are not.
func writeErr(w http.ResponseWriter, logger *slog.Logger, reqID string, err error) {
	coreErr, status := coreErrorFrom(err, reqID)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Warn("request failed", "request_id", reqID, "status", status, "error", err)
	}
	writeCoreErrorJSON(w, reqID, coreErr, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeCoreErrorJSON(w, reqID, &core.Error{
		Type:    core.ErrInvalidRequest,
		Message: "method not allowed",
		Code:    "method_not_allowed",
	}, http.StatusMethodNotAllowed)
}

// decodeStrict reads a single JSON object from r's body into v, rejecting
// unknown fields and trailing data.
func decodeStrict(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if mw.IsBodyTooLarge(err) {
			return &core.Error{Type: core.ErrInvalidRequest, Message: "request body too large", Code: "body_too_large"}
		}
		return core.NewInvalidRequestError("failed to read request body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return core.NewInvalidRequestError("request body is empty")
		case errors.As(err, &syntaxErr):
			return core.NewInvalidRequestError(fmt.Sprintf("malformed json at offset %d", syntaxErr.Offset))
		case errors.As(err, &typeErr):
			return core.NewInvalidRequestErrorWithParam("invalid value type", typeErr.Field)
		default:
			return core.NewInvalidRequestError(err.Error())
		}
	}
	if dec.More() {
		return core.NewInvalidRequestError("request body must contain a single json object")
	}
	return nil
}

// withTimeout bounds model calls by the configured handler timeout.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
