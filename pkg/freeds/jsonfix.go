package freeds

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const maxRecoverAttempts = 32

// recoverJSON parses a JSON object, tolerating garbage the firmware sometimes
// appends after the closing brace (e.g. `{"a":1}}HTTP/1.1`). The document is
// cut at successively earlier '}' until a prefix parses.
func recoverJSON(data []byte) (map[string]any, error) {
	var obj map[string]any
	err := json.Unmarshal(data, &obj)
	if err == nil {
		return obj, nil
	}

	end := len(data)
	for attempt := 0; attempt < maxRecoverAttempts; attempt++ {
		idx := bytes.LastIndexByte(data[:end], '}')
		if idx < 0 {
			break
		}
		obj = nil
		if json.Unmarshal(data[:idx+1], &obj) == nil {
			return obj, nil
		}
		end = idx
	}
	return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
}

// rescueFrame is the last resort for a malformed event payload: parse from the
// first '{' onwards and let recoverJSON drop any trailing junk.
func rescueFrame(payload []byte) (map[string]any, error) {
	start := bytes.IndexByte(payload, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w: no object in frame", ErrParseFailure)
	}
	return recoverJSON(payload[start:])
}
