package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Handle identifies a record in an external store. It is either a string or an
// integer. The zero value means "no handle"; so do the empty string and 0.
//
// Handles are comparable and can be used with ==.
type Handle struct {
	str   string
	num   int64
	isNum bool
}

// StringHandle returns a handle for s.
func StringHandle(s string) Handle {
	if s == "" {
		return Handle{}
	}
	return Handle{str: s}
}

// IntHandle returns a handle for n.
func IntHandle(n int64) Handle {
	if n == 0 {
		return Handle{}
	}
	return Handle{num: n, isNum: true}
}

// ParseHandle returns a numeric handle if s is the canonical form of an
// integer and a string handle otherwise.
func ParseHandle(s string) Handle {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return IntHandle(n)
	}
	return StringHandle(s)
}

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return !h.isNum && h.str == ""
}

// IsNumber reports whether h is a numeric handle.
func (h Handle) IsNumber() bool {
	return h.isNum
}

// Int returns the numeric value of h.
func (h Handle) Int() (int64, bool) {
	return h.num, h.isNum
}

// String returns the textual form of h, the empty string for the zero handle.
func (h Handle) String() string {
	if h.isNum {
		return strconv.FormatInt(h.num, 10)
	}
	return h.str
}

// Key returns a string that is unique per handle and distinguishes "42" from 42.
// External stores that key records by text use it, see HandleFromKey.
func (h Handle) Key() string {
	if h.isNum {
		return "n:" + h.String()
	}
	return "s:" + h.str
}

// HandleFromKey reverses Handle.Key.
func HandleFromKey(key string) (Handle, error) {
	if len(key) < 2 || key[1] != ':' {
		return Handle{}, fmt.Errorf("invalid handle key %q", key)
	}
	switch key[0] {
	case 's':
		return StringHandle(key[2:]), nil
	case 'n':
		n, err := strconv.ParseInt(key[2:], 10, 64)
		if err != nil {
			return Handle{}, fmt.Errorf("invalid handle key %q: %w", key, err)
		}
		return IntHandle(n), nil
	default:
		return Handle{}, fmt.Errorf("invalid handle key %q", key)
	}
}

// Value returns the handle as it appears in JSON documents: nil, string or int64.
func (h Handle) Value() any {
	switch {
	case h.IsZero():
		return nil
	case h.isNum:
		return h.num
	default:
		return h.str
	}
}

// handleFromValue converts a decoded JSON/YAML value into a handle.
func handleFromValue(v any) (Handle, error) {
	switch t := v.(type) {
	case nil:
		return Handle{}, nil
	case string:
		return StringHandle(t), nil
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > 1<<53 {
			return Handle{}, fmt.Errorf("handle must be an integer, got %v", t)
		}
		return IntHandle(int64(t)), nil
	case int:
		return IntHandle(int64(t)), nil
	case int64:
		return IntHandle(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return Handle{}, fmt.Errorf("handle must be an integer, got %s", t)
		}
		return IntHandle(n), nil
	default:
		return Handle{}, fmt.Errorf("handle must be a string or an integer, got %T", v)
	}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

func (h Handle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Value())
}

func (h *Handle) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := handleFromValue(v)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (h Handle) MarshalYAML() (interface{}, error) {
	return h.Value(), nil
}

func (h *Handle) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	parsed, err := handleFromValue(v)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
