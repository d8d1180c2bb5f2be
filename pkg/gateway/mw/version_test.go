package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientVersion(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		path       string
		version    string
		upgrade    bool
		want       int
		wantServed bool
	}{
		{name: "missing header", method: http.MethodPost, path: "/v1/chat", want: http.StatusNoContent, wantServed: true},
		{name: "bare major", method: http.MethodPost, path: "/v1/mood", version: "1", want: http.StatusNoContent, wantServed: true},
		{name: "minor ignored", method: http.MethodPost, path: "/v1/expert", version: "1.7.3", want: http.StatusNoContent, wantServed: true},
		{name: "v prefix", method: http.MethodGet, path: "/v1/settings", version: "v1", want: http.StatusNoContent, wantServed: true},
		{name: "newer major", method: http.MethodPost, path: "/v1/chat", version: "2", want: http.StatusBadRequest, wantServed: true},
		{name: "older major", method: http.MethodPost, path: "/v1/chat", version: "0.9", want: http.StatusBadRequest, wantServed: true},
		{name: "garbage", method: http.MethodPut, path: "/v1/settings", version: "muhabbet", want: http.StatusBadRequest, wantServed: true},
		{name: "outside /v1", method: http.MethodGet, path: "/healthz", version: "2", want: http.StatusNoContent},
		{name: "preflight", method: http.MethodOptions, path: "/v1/chat", version: "2", want: http.StatusNoContent},
		{name: "live upgrade", method: http.MethodGet, path: "/v1/live", version: "2", upgrade: true, want: http.StatusNoContent},
	}

	h := ClientVersion(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.version != "" {
				req.Header.Set(clientVersionHeader, tc.version)
			}
			if tc.upgrade {
				req.Header.Set("Connection", "keep-alive, Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%q", rr.Code, tc.want, rr.Body.String())
			}
			if served := rr.Header().Get(clientVersionHeader) == "1"; served != tc.wantServed {
				t.Fatalf("served header=%q", rr.Header().Get(clientVersionHeader))
			}
		})
	}
}

func TestClientVersion_RejectionEnvelope(t *testing.T) {
	cases := []struct {
		version string
		message string
	}{
		{version: "2.1", message: `unsupported app version \"2.1\"; server speaks 1`},
		{version: "beta", message: `malformed app version \"beta\"`},
	}
	h := ClientVersion(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next should not run")
	}))
	for _, tc := range cases {
		t.Run(tc.version, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil).WithContext(WithRequestID(context.Background(), "req_abc123"))
			req.Header.Set(clientVersionHeader, tc.version)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			body := rr.Body.String()
			for _, want := range []string{
				`"type":"invalid_request_error"`,
				`"code":"unsupported_version"`,
				`"param":"X-Boncuk-Version"`,
				`"request_id":"req_abc123"`,
				tc.message,
			} {
				if !strings.Contains(body, want) {
					t.Fatalf("missing %s in %q", want, body)
				}
			}
		})
	}
}

func TestParseMajor(t *testing.T) {
	cases := map[string]struct {
		want int
		ok   bool
	}{
		"1":      {1, true},
		"v2":     {2, true},
		"V1.0":   {1, true},
		"10.2.3": {10, true},
		"":       {0, false},
		"v":      {0, false},
		"-1":     {0, false},
		"1a":     {0, false},
	}
	for in, tc := range cases {
		got, ok := parseMajor(in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseMajor(%q)=%d,%v want %d,%v", in, got, ok, tc.want, tc.ok)
		}
	}
}
