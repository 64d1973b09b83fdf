package freeds

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Mode is the wire protocol spoken by a given firmware.
type Mode int

const (
	ModeUnknown Mode = iota
	ModePolledJSON
	ModeSSE
	ModeWebSocket
)

func (m Mode) String() string {
	switch m {
	case ModePolledJSON:
		return "polled-json"
	case ModeSSE:
		return "sse"
	case ModeWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// ParseMode accepts the names returned by Mode.String, "auto" and "" map to ModeUnknown.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "unknown":
		return ModeUnknown, nil
	case "polled-json", "json":
		return ModePolledJSON, nil
	case "sse", "events":
		return ModeSSE, nil
	case "websocket", "ws":
		return ModeWebSocket, nil
	}
	return ModeUnknown, fmt.Errorf("unknown freeds mode %q", s)
}

const (
	// first firmware major serving /json
	polledJSONMinMajor = 2
	// legacy version strings carry a build year at [4:8]
	legacyPolledJSONThreshold = 2023
)

// ModeForVersion applies the firmware version rule. It reports false when the
// version string does not classify.
func ModeForVersion(version string) (Mode, bool) {
	v := strings.TrimSpace(version)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")

	digits := strings.IndexFunc(v, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && v[digits] == '.' {
		major, err := strconv.Atoi(v[:digits])
		if err == nil {
			if major >= polledJSONMinMajor {
				return ModePolledJSON, true
			}
			return ModeWebSocket, true
		}
	}

	if len(v) >= 8 {
		build, err := strconv.Atoi(v[4:8])
		if err == nil && isDigits(v[4:8]) {
			if build >= legacyPolledJSONThreshold {
				return ModePolledJSON, true
			}
			return ModeWebSocket, true
		}
	}
	return ModeUnknown, false
}

func isDigits(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}
