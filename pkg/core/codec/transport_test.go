package codec

import (
	"bytes"
	"testing"

	"github.com/boncukgram/boncuk/pkg/core"
)

func TestTransportText_RoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":    {},
		"zeros":    make([]byte, 64),
		"all byte": allBytes(),
		"odd size": {0xff, 0x00, 0x7f},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := TransportTextToBytes(BytesToTransportText(in))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(out, in) {
				t.Fatalf("round trip mismatch: got %v want %v", out, in)
			}
		})
	}
}

func TestTransportTextToBytes_Invalid(t *testing.T) {
	if _, err := TransportTextToBytes("not base64!!"); !core.IsType(err, core.ErrDecode) {
		t.Fatalf("err=%v, want decode_failure", err)
	}
}

func TestStripDataURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "data:image/jpeg;base64,QUJD", want: "QUJD"},
		{in: "QUJD", want: "QUJD"},
		{in: "data:image/jpeg;base64,", want: "data:image/jpeg;base64,"},
	}
	for _, tt := range tests {
		if got := StripDataURL(tt.in); got != tt.want {
			t.Errorf("StripDataURL(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeInlineImage(t *testing.T) {
	got, err := DecodeInlineImage(" data:image/png;base64,QUJD ")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "ABC" {
		t.Fatalf("got %q", got)
	}
}

func allBytes() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
