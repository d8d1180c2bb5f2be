package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/boncukgram/boncuk/pkg/core/media"
)

func TestDecodeClientMessage_HelloDefaultsToEnvironment(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"hello"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	hello, ok := msg.(ClientHello)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientHello", msg)
	}
	if hello.FacingMode != media.FacingEnvironment {
		t.Fatalf("facing_mode=%q", hello.FacingMode)
	}
}

func TestDecodeClientMessage_HelloRejectsUnknownFacing(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"hello","facing_mode":"sideways"}`))
	de, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("error type = %T, want *DecodeError", err)
	}
	if de.Param != "facing_mode" || de.Code != "bad_request" {
		t.Fatalf("decode error = %+v", de)
	}
}

func TestDecodeClientMessage_Kinds(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{`{"type":"audio","data_b64":"AAA="}`, ClientAudio{}},
		{`{"type":"frame","data_b64":"/9j/"}`, ClientFrame{}},
		{`{"type":"switch_camera","facing_mode":"user"}`, ClientSwitchCamera{}},
		{`{"type":"switch_camera"}`, ClientSwitchCamera{}},
		{`{"type":"stop"}`, ClientStop{}},
	}
	for _, tt := range tests {
		msg, err := DecodeClientMessage([]byte(tt.raw))
		if err != nil {
			t.Fatalf("DecodeClientMessage(%s) error = %v", tt.raw, err)
		}
		switch tt.want.(type) {
		case ClientAudio:
			if m, ok := msg.(ClientAudio); !ok || m.DataB64 != "AAA=" {
				t.Fatalf("%s decoded as %#v", tt.raw, msg)
			}
		case ClientFrame:
			if _, ok := msg.(ClientFrame); !ok {
				t.Fatalf("%s decoded as %T", tt.raw, msg)
			}
		case ClientSwitchCamera:
			if _, ok := msg.(ClientSwitchCamera); !ok {
				t.Fatalf("%s decoded as %T", tt.raw, msg)
			}
		case ClientStop:
			if _, ok := msg.(ClientStop); !ok {
				t.Fatalf("%s decoded as %T", tt.raw, msg)
			}
		}
	}
}

func TestDecodeClientMessage_Rejects(t *testing.T) {
	tests := []struct {
		raw   string
		param string
	}{
		{`not json`, ""},
		{`{}`, "type"},
		{`{"type":"dance"}`, "type"},
		{`{"type":"audio"}`, "data_b64"},
		{`{"type":"frame","data_b64":"  "}`, "data_b64"},
		{`{"type":"switch_camera","facing_mode":"back"}`, "facing_mode"},
	}
	for _, tt := range tests {
		_, err := DecodeClientMessage([]byte(tt.raw))
		if err == nil {
			t.Fatalf("DecodeClientMessage(%s) expected error", tt.raw)
		}
		de, ok := err.(*DecodeError)
		if !ok {
			t.Fatalf("error type = %T", err)
		}
		if de.Param != tt.param {
			t.Fatalf("DecodeClientMessage(%s) param=%q, want %q", tt.raw, de.Param, tt.param)
		}
	}
}

func TestServerAudio_JSONShape(t *testing.T) {
	b, err := json.Marshal(ServerAudio{Type: TypeAudio, DataB64: "AAA=", StartMS: 250, DurationMS: 100})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	for _, want := range []string{`"type":"audio"`, `"data_b64":"AAA="`, `"start_ms":250`, `"duration_ms":100`} {
		if !strings.Contains(got, want) {
			t.Fatalf("json=%s missing %s", got, want)
		}
	}
}
