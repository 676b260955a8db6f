package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/apperr"
	yaml "go.yaml.in/yaml/v3"
)

// Number is a real value that may be missing. The zero value is missing.
type Number struct {
	v  float64
	ok bool
}

// Some returns a present Number. NaN is treated as missing.
func Some(v float64) Number {
	if math.IsNaN(v) {
		return Number{}
	}
	return Number{v: v, ok: true}
}

// None returns a missing Number.
func None() Number { return Number{} }

// NumberOf applies the "usable number" rule to an arbitrary value: every Go
// integer and float kind is present unless it is NaN; anything else (nil,
// strings, booleans, …) is missing.
func NumberOf(x any) Number {
	switch v := x.(type) {
	case Number:
		return v
	case float64:
		return Some(v)
	case float32:
		return Some(float64(v))
	case int:
		return Some(float64(v))
	case int8:
		return Some(float64(v))
	case int16:
		return Some(float64(v))
	case int32:
		return Some(float64(v))
	case int64:
		return Some(float64(v))
	case uint:
		return Some(float64(v))
	case uint8:
		return Some(float64(v))
	case uint16:
		return Some(float64(v))
	case uint32:
		return Some(float64(v))
	case uint64:
		return Some(float64(v))
	default:
		return Number{}
	}
}

// ParseNumber parses user input. Empty, "unknown", "none", "null", "nan"
// and "-" are missing; anything else must be a real number.
func ParseNumber(s string) (Number, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "", "unknown", "none", "null", "nan", ".nan", "-", "--":
		return Number{}, nil
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return Number{}, apperr.InvalidArgf("%q is not a number", s)
	}
	return Some(v), nil
}

// Get returns the value and whether it is present.
func (n Number) Get() (float64, bool) { return n.v, n.ok }

// Valid reports whether the number is present.
func (n Number) Valid() bool { return n.ok }

// Or returns the value, or def when missing.
func (n Number) Or(def float64) float64 {
	if !n.ok {
		return def
	}
	return n.v
}

// String renders the value with the shortest exact representation,
// or "unknown" when missing.
func (n Number) String() string {
	if !n.ok {
		return "unknown"
	}
	return strconv.FormatFloat(n.v, 'f', -1, 64)
}

// Format renders the value with a fixed number of decimals, or "" when missing.
func (n Number) Format(prec int) string {
	if !n.ok {
		return ""
	}
	return strconv.FormatFloat(n.v, 'f', prec, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.ok || math.IsInf(n.v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(n.v)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = Number{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := ParseNumber(str)
		if err != nil {
			return err
		}
		*n = v
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Some(v)
	return nil
}

func (n Number) MarshalYAML() (any, error) {
	if !n.ok {
		return nil, nil
	}
	return n.v, nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("number: line %d: expected a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*n = Number{}
		return nil
	}
	v, err := ParseNumber(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*n = v
	return nil
}
