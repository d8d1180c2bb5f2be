package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boncukgram/boncuk/pkg/settings"
)

func doSettings(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, settings.Snapshot) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var snap settings.Snapshot
	if rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	}
	return rr, snap
}

func TestSettingsHandler_Defaults(t *testing.T) {
	h := SettingsHandler{Settings: settings.New(settings.NewMemoryStore(nil)), Logger: testLogger()}
	rr, snap := doSettings(t, h, http.MethodGet, "/v1/settings", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	want := settings.Snapshot{Unlocked: false, Language: "tr", UserName: "Boncuk Dostu"}
	if snap != want {
		t.Fatalf("snap=%+v want %+v", snap, want)
	}
}

func TestSettingsHandler_Update(t *testing.T) {
	store := settings.NewMemoryStore(nil)
	h := SettingsHandler{Settings: settings.New(store), Logger: testLogger()}

	rr, snap := doSettings(t, h, http.MethodPut, "/v1/settings", `{"language":"en"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if snap.Language != "en" || snap.UserName != "Bird Friend" {
		t.Fatalf("snap=%+v", snap)
	}

	_, snap = doSettings(t, h, http.MethodPatch, "/v1/settings", `{"user_name":"Ayşe"}`)
	if snap.UserName != "Ayşe" || snap.Language != "en" {
		t.Fatalf("snap=%+v", snap)
	}
	if v, _, _ := store.Get(context.Background(), settings.KeyUserName); v != "Ayşe" {
		t.Fatalf("stored name=%q", v)
	}
}

func TestSettingsHandler_UpdateRejects(t *testing.T) {
	h := SettingsHandler{Settings: settings.New(settings.NewMemoryStore(nil)), Logger: testLogger()}
	for _, body := range []string{`{"language":"TUR"}`, `{"user_name":"   "}`, `{"theme":"dark"}`, `not json`} {
		rr, _ := doSettings(t, h, http.MethodPut, "/v1/settings", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", body, rr.Code)
		}
	}
}

func TestSettingsHandler_UnlockLock(t *testing.T) {
	h := SettingsHandler{Settings: settings.New(settings.NewMemoryStore(nil)), Logger: testLogger()}

	rr, snap := doSettings(t, h, http.MethodPost, "/v1/settings/unlock", "")
	if rr.Code != http.StatusOK || !snap.Unlocked {
		t.Fatalf("unlock: status=%d snap=%+v", rr.Code, snap)
	}
	rr, snap = doSettings(t, h, http.MethodPost, "/v1/settings/lock", "")
	if rr.Code != http.StatusOK || snap.Unlocked {
		t.Fatalf("lock: status=%d snap=%+v", rr.Code, snap)
	}

	rr, _ = doSettings(t, h, http.MethodGet, "/v1/settings/unlock", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET unlock: status=%d", rr.Code)
	}
	rr, _ = doSettings(t, h, http.MethodPost, "/v1/settings/reset", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown action: status=%d", rr.Code)
	}
	rr, _ = doSettings(t, h, http.MethodDelete, "/v1/settings", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE: status=%d", rr.Code)
	}
}

// failingStore embeds a MemoryStore, so it must only be used by pointer.
type failingStore struct{ settings.MemoryStore }

var _ settings.Store = (*failingStore)(nil)

func (*failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func TestSettingsHandler_StoreFailure(t *testing.T) {
	h := SettingsHandler{Settings: settings.New(&failingStore{}), Logger: testLogger()}
	rr, _ := doSettings(t, h, http.MethodGet, "/v1/settings", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
}
