package codec

import (
	"encoding/base64"
	"strings"

	"github.com/boncukgram/boncuk/pkg/core"
)

// BytesToTransportText encodes binary data as standard base64.
func BytesToTransportText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// TransportTextToBytes reverses BytesToTransportText.
func TransportTextToBytes(text string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, core.NewDecodeError("invalid base64 payload", err)
	}
	return out, nil
}

// StripDataURL returns the payload of a data URL ("data:image/jpeg;base64,....").
// Strings without a comma, or with nothing after it, are returned unchanged.
func StripDataURL(s string) string {
	idx := strings.IndexByte(s, ',')
	if idx < 0 || idx == len(s)-1 {
		return s
	}
	return s[idx+1:]
}

// DecodeInlineImage decodes a base64 image that may be wrapped in a data URL.
func DecodeInlineImage(s string) ([]byte, error) {
	return TransportTextToBytes(strings.TrimSpace(StripDataURL(strings.TrimSpace(s))))
}
