package tools

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// decodeArguments parses tool arguments into a generic map. Missing, null or
// non-object arguments yield an empty map so that validation reports the
// missing fields.
func decodeArguments(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// decodeString stringifies a required field. Absent, null, false and zero
// values become the empty string so they fail the required check.
func decodeString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	case float64:
		if v == 0 || math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if !v {
			return ""
		}
		return "true"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// decodeNumber returns the field as an integer when it is a JSON number, or
// nil when it is absent or of any other type. Fractions are floored so a
// later millisecond to second division still rounds toward negative infinity.
func decodeNumber(args map[string]any, key string) (*int64, bool) {
	raw, present := args[key]
	if !present || raw == nil {
		return nil, true
	}

	var f float64
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return &i, true
		}
		parsed, err := v.Float64()
		if err != nil {
			return nil, false
		}
		f = parsed
	case float64:
		f = v
	case int:
		i := int64(v)
		return &i, true
	case int64:
		return &v, true
	default:
		return nil, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return nil, false
	}
	i := int64(math.Floor(f))
	return &i, true
}

// decodeBool returns the field when it is a JSON boolean, or nil otherwise.
func decodeBool(args map[string]any, key string) (*bool, bool) {
	raw, present := args[key]
	if !present || raw == nil {
		return nil, true
	}
	if b, ok := raw.(bool); ok {
		return &b, true
	}
	return nil, false
}
