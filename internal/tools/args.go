package tools

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"pkt.systems/ttypilot/schema"
)

// Args is a decoded tool argument bag.
type Args map[string]any

// DecodeArgs parses a JSON object into an argument bag. Empty input and
// JSON null decode to an empty bag.
func DecodeArgs(raw []byte) (Args, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Args{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var args Args
	if err := dec.Decode(&args); err != nil {
		return nil, schema.Validationf("arguments must be a JSON object: %v", err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

func (a Args) str(name string, required bool) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		if required {
			return "", schema.Validationf("%s is required", name)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", schema.Validationf("%s must be a string", name)
	}
	return s, nil
}

func (a Args) flag(name string) (bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, schema.Validationf("%s must be a boolean", name)
	}
	return b, nil
}

func (a Args) integer(name string) (int, bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false, schema.Validationf("%s must be an integer", name)
		}
		f = parsed
	case float64:
		f = n
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	default:
		return 0, false, schema.Validationf("%s must be an integer", name)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false, schema.Validationf("%s must be an integer", name)
	}
	return int(f), true, nil
}

func (a Args) list(name string, required bool) ([]string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		if required {
			return nil, schema.Validationf("%s is required", name)
		}
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, schema.Validationf("%s[%d] must be a string", name, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, schema.Validationf("%s must be a list of strings", name)
	}
}

// rejectUnknown fails when the bag carries names outside spec.
func (a Args) rejectUnknown(spec Spec) error {
	var unknown []string
	for name := range a {
		if _, ok := spec.Param(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return schema.Validationf("unknown argument(s) for %s: %s", spec.Name, strings.Join(unknown, ", "))
}
