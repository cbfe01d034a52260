// Package transport decodes the wire frame envelope and adapts Redis
// Streams into per-device Pipeline input via an XREADGROUP/XACK consumer
// loop.
package transport

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// ErrShortEnvelope is returned when a binary envelope is too short to
// contain the 4-byte capture-interval prefix.
var ErrShortEnvelope = fmt.Errorf("transport: envelope shorter than the 4-byte capture-interval prefix")

// DecodedFrame is the raw JPEG payload plus the capture interval recovered
// from the wire envelope.
type DecodedFrame struct {
	CaptureIntervalMS int64
	JPEG              []byte
}

// DecodeEnvelope accepts either binary form (4-byte little-endian
// capture-interval-ms followed by JPEG bytes) or text form (a
// `data:image/...;base64,...` data URI, which carries no capture interval
// and defaults to 0).
func DecodeEnvelope(payload []byte) (DecodedFrame, error) {
	if looksLikeDataURI(payload) {
		return decodeDataURI(string(payload))
	}
	return decodeBinary(payload)
}

func looksLikeDataURI(payload []byte) bool {
	return strings.HasPrefix(string(payload), "data:image/")
}

func decodeBinary(payload []byte) (DecodedFrame, error) {
	if len(payload) < 4 {
		return DecodedFrame{}, ErrShortEnvelope
	}
	interval := binary.LittleEndian.Uint32(payload[:4])
	return DecodedFrame{CaptureIntervalMS: int64(interval), JPEG: payload[4:]}, nil
}

func decodeDataURI(s string) (DecodedFrame, error) {
	idx := strings.Index(s, ",")
	if idx < 0 {
		return DecodedFrame{}, fmt.Errorf("transport: malformed data URI, no comma separator")
	}
	jpeg, err := base64.StdEncoding.DecodeString(s[idx+1:])
	if err != nil {
		return DecodedFrame{}, fmt.Errorf("transport: invalid base64 payload: %w", err)
	}
	return DecodedFrame{CaptureIntervalMS: 0, JPEG: jpeg}, nil
}
