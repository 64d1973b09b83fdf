package freeds

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Snapshot is the full device telemetry grouped by category. A snapshot is
// produced wholesale on every successful parse and is never mutated after it
// has been emitted.
type Snapshot map[string]map[string]any

func (s Snapshot) Value(category, field string) (any, bool) {
	fields, ok := s[category]
	if !ok {
		return nil, false
	}
	value, ok := fields[field]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// Float returns a numeric field. Numbers sent as strings are parsed.
func (s Snapshot) Float(category, field string) (float64, bool) {
	value, ok := s.Value(category, field)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Bool returns a boolean-like field, the device sends 0/1 either as numbers or strings.
func (s Snapshot) Bool(category, field string) (bool, bool) {
	value, ok := s.Value(category, field)
	if !ok {
		return false, false
	}
	if b, isBool := value.(bool); isBool {
		return b, true
	}
	f, ok := s.Float(category, field)
	if !ok {
		return false, false
	}
	return f != 0, true
}

func (s Snapshot) String(category, field string) (string, bool) {
	value, ok := s.Value(category, field)
	if !ok {
		return "", false
	}
	if str, isString := value.(string); isString {
		return str, true
	}
	if f, isFloat := value.(float64); isFloat {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return fmt.Sprint(value), true
}

// Categories returns the category names in lexical order.
func (s Snapshot) Categories() []string {
	keys := lo.Keys(s)
	sort.Strings(keys)
	return keys
}

func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for category, fields := range s {
		out[category] = lo.Assign(fields)
	}
	return out
}

// decodeSnapshot parses a category keyed document as sent by the polled and
// websocket endpoints. Top level members that are not objects are ignored.
func decodeSnapshot(data []byte) (Snapshot, error) {
	obj, err := recoverJSON(data)
	if err != nil {
		return nil, err
	}
	snapshot := Snapshot{}
	for key, value := range obj {
		if fields, ok := value.(map[string]any); ok {
			snapshot[key] = fields
		}
	}
	if len(snapshot) == 0 {
		return nil, fmt.Errorf("%w: no categories in document", ErrParseFailure)
	}
	return snapshot, nil
}
