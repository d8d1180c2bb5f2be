package mw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/boncukgram/boncuk/pkg/core"
)

// The app sends its companion protocol version in X-Boncuk-Version as
// "1", "v1" or "1.4". Only the major part is checked.
const (
	clientVersionHeader = "X-Boncuk-Version"
	servedMajorVersion  = 1
)

// ClientVersion guards the /v1 companion routes against app builds that
// speak a different protocol major. A missing header counts as the served
// major. Responses echo the served major so older builds can prompt for an
// update.
//
// Preflights and the /v1/live upgrade are let through: browsers cannot
// attach custom headers to either.
func ClientVersion(next http.Handler) http.Handler {
	served := strconv.Itoa(servedMajorVersion)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || websocket.IsWebSocketUpgrade(r) || !isV1Path(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set(clientVersionHeader, served)

		raw := strings.TrimSpace(r.Header.Get(clientVersionHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		major, ok := parseMajor(raw)
		if ok && major == servedMajorVersion {
			next.ServeHTTP(w, r)
			return
		}

		reqID, _ := RequestIDFrom(r.Context())
		msg := "unsupported app version " + strconv.Quote(raw) + "; server speaks " + served
		if !ok {
			msg = "malformed app version " + strconv.Quote(raw)
		}
		writeJSONError(w, http.StatusBadRequest, &core.Error{
			Type:      core.ErrInvalidRequest,
			Message:   msg,
			Param:     clientVersionHeader,
			Code:      "unsupported_version",
			RequestID: reqID,
		})
	})
}

// parseMajor reads the leading major number of "1", "v1" or "1.4.2".
func parseMajor(v string) (int, bool) {
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isV1Path(path string) bool {
	return path == "/v1" || strings.HasPrefix(path, "/v1/")
}
