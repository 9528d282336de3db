package core

// convert.go coerces loosely typed source fields into typed values.
//
// Records arrive from the data layer as flat JSON objects whose shapes drift
// between services:
//   - Amounts as numbers, "12,500", "PKR 12,500.00" or "(300)"
//   - Dates as ISO timestamps, "2024-03-01" or "01/03/2024"
//   - Booleans as true/false, "yes"/"no" or 1/0
//
// Loose captures any JSON scalar and converts on demand. Entity decoders use
// it for every field that is not reliably typed at the source.

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Date layouts tried in order. Day-first layouts come before month-first
// ones because source data is day/month/year.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

// isoDateRegex matches strings that look like ISO dates or timestamps.
var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

// LooksLikeISODate reports whether s has the shape of an ISO-8601 date.
func LooksLikeISODate(s string) bool {
	return isoDateRegex.MatchString(strings.TrimSpace(s))
}

// ParseAmount parses a monetary or numeric string.
// Handles currency prefixes, thousands separators and accounting negatives.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	upper := strings.ToUpper(s)
	for _, prefix := range []string{"PKR", "RS.", "RS", "USD"} {
		if strings.HasPrefix(upper, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "₨", "") // Rupee sign
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseDate parses a date string using the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// Loose holds any JSON scalar from a source record.
type Loose struct {
	raw   string
	num   *float64
	b     *bool
	valid bool
}

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (l *Loose) UnmarshalJSON(data []byte) error {
	*l = Loose{}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
	case string:
		l.raw, l.valid = x, true
	case float64:
		l.num, l.valid = &x, true
		l.raw = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		l.b, l.valid = &x, true
		l.raw = strconv.FormatBool(x)
	default:
		// Objects and arrays are kept verbatim as text.
		l.raw, l.valid = string(data), true
	}
	return nil
}

// MarshalJSON writes the value back in its most natural JSON shape.
func (l Loose) MarshalJSON() ([]byte, error) {
	switch {
	case !l.valid:
		return []byte("null"), nil
	case l.num != nil:
		return json.Marshal(*l.num)
	case l.b != nil:
		return json.Marshal(*l.b)
	default:
		return json.Marshal(l.raw)
	}
}

// LooseString builds a Loose from a string, mostly for tests and fixtures.
func LooseString(s string) Loose {
	return Loose{raw: s, valid: true}
}

// LooseNumber builds a Loose from a number.
func LooseNumber(n float64) Loose {
	return Loose{raw: strconv.FormatFloat(n, 'f', -1, 64), num: &n, valid: true}
}

// Valid reports whether the source field was present and non-null.
func (l Loose) Valid() bool { return l.valid }

// Text returns the trimmed source text.
func (l Loose) Text() string { return strings.TrimSpace(l.raw) }

// Amount returns the numeric value, or nil when absent or unparseable.
func (l Loose) Amount() *float64 {
	if !l.valid {
		return nil
	}
	if l.num != nil {
		n := *l.num
		return &n
	}
	if f, ok := ParseAmount(l.raw); ok {
		return &f
	}
	return nil
}

// Date returns the parsed time, or the zero time.
func (l Loose) Date() time.Time {
	if !l.valid || l.num != nil || l.b != nil {
		return time.Time{}
	}
	t, _ := ParseDate(l.raw)
	return t
}

// Bool returns the parsed boolean; absent or unparseable values are false.
func (l Loose) Bool() bool {
	if l.b != nil {
		return *l.b
	}
	if l.num != nil {
		return *l.num != 0
	}
	v, _ := ParseBool(l.raw)
	return v
}

// Int returns the numeric value truncated to an int.
func (l Loose) Int() int {
	if a := l.Amount(); a != nil {
		return int(*a)
	}
	return 0
}
