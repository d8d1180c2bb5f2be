package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boncukgram/boncuk/pkg/gateway/config"
)

const appOrigin = "https://boncuk.app"

func corsHandler(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return CORS(config.Config{CORSAllowedOrigins: allowed}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			t.Fatalf("next handler should not see preflight")
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORS_SimpleRequests(t *testing.T) {
	cases := []struct {
		name      string
		origins   []string
		origin    string
		wantAllow string
	}{
		{name: "no allowlist", origin: appOrigin},
		{name: "not listed", origins: []string{appOrigin}, origin: "http://localhost:5173"},
		{name: "listed", origins: []string{appOrigin}, origin: appOrigin, wantAllow: appOrigin},
		{name: "same origin", origins: []string{appOrigin}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rr := httptest.NewRecorder()
			corsHandler(t, tc.origins...).ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Fatalf("Access-Control-Allow-Origin=%q, want %q", got, tc.wantAllow)
			}
			if tc.wantAllow == "" {
				return
			}
			if got := rr.Header().Get("Vary"); got != "Origin" {
				t.Fatalf("Vary=%q", got)
			}
			exposed := rr.Header().Get("Access-Control-Expose-Headers")
			for _, h := range []string{"X-Request-ID", "X-Model", "Retry-After", "X-Boncuk-Version"} {
				if !strings.Contains(exposed, h) {
					t.Fatalf("exposed headers %q missing %s", exposed, h)
				}
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	cases := []struct {
		name   string
		origin string
		want   int
	}{
		{name: "allowed", origin: appOrigin, want: http.StatusNoContent},
		{name: "other origin", origin: "https://evil.example.com", want: http.StatusForbidden},
		{name: "missing origin", want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/v1/settings", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			rr := httptest.NewRecorder()
			corsHandler(t, appOrigin).ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d", rr.Code, tc.want)
			}
			if tc.want != http.StatusNoContent {
				return
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPut) || strings.Contains(got, http.MethodDelete) {
				t.Fatalf("Access-Control-Allow-Methods=%q", got)
			}
			if got := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Boncuk-Version") {
				t.Fatalf("Access-Control-Allow-Headers=%q", got)
			}
		})
	}
}
