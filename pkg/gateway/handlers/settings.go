package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/boncukgram/boncuk/pkg/gateway/mw"
	"github.com/boncukgram/boncuk/pkg/settings"
)

// SettingsUpdate is the body of PUT /v1/settings. Absent fields are left
// unchanged.
type SettingsUpdate struct {
	Language *string `json:"language,omitempty"`
	UserName *string `json:"user_name,omitempty"`
}

// SettingsHandler serves /v1/settings and its unlock/lock actions.
type SettingsHandler struct {
	Settings *settings.Settings
	Logger   *slog.Logger
}

func (h SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	ctx := r.Context()

	switch action := strings.TrimPrefix(r.URL.Path, "/v1/settings"); action {
	case "", "/":
		switch r.Method {
		case http.MethodGet:
		case http.MethodPut, http.MethodPatch:
			var upd SettingsUpdate
			if err := decodeStrict(r, &upd); err != nil {
				writeErr(w, h.Logger, reqID, err)
				return
			}
			if upd.Language != nil {
				if err := h.Settings.SetLanguage(ctx, *upd.Language); err != nil {
					writeErr(w, h.Logger, reqID, err)
					return
				}
			}
			if upd.UserName != nil {
				if err := h.Settings.SetUserName(ctx, *upd.UserName); err != nil {
					writeErr(w, h.Logger, reqID, err)
					return
				}
			}
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch)
			return
		}
	case "/unlock", "/lock":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var err error
		if action == "/unlock" {
			err = h.Settings.Unlock(ctx)
		} else {
			err = h.Settings.Lock(ctx)
		}
		if err != nil {
			writeErr(w, h.Logger, reqID, err)
			return
		}
	default:
		NotFoundHandler{}.ServeHTTP(w, r)
		return
	}

	snap, err := h.Settings.Snapshot(ctx)
	if err != nil {
		writeErr(w, h.Logger, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
