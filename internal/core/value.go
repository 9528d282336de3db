package core

import (
	"encoding/json"
	"strconv"
	"time"
)

// Kind is the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Value is a typed cell value. The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
}

// Null is the empty value.
var Null = Value{}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a time value. A zero time is Null.
func Time(t time.Time) Value {
	if t.IsZero() {
		return Null
	}
	return Value{kind: KindTime, t: t}
}

// OptNumber returns Null for a nil pointer.
func OptNumber(n *float64) Value {
	if n == nil {
		return Null
	}
	return Number(*n)
}

// OptString returns Null for an empty string.
func OptString(s string) Value {
	if s == "" {
		return Null
	}
	return String(s)
}

func (v Value) Kind() Kind           { return v.kind }
func (v Value) IsNull() bool         { return v.kind == KindNull }
func (v Value) Str() string          { return v.str }
func (v Value) Num() float64         { return v.num }
func (v Value) Boolean() bool        { return v.b }
func (v Value) TimeValue() time.Time { return v.t }
func (v Value) IsNumber() bool       { return v.kind == KindNumber }

// Text stringifies the value. Null becomes the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return FormatTime(v.t)
	default:
		return ""
	}
}

// FormatTime renders dates without a clock component as YYYY-MM-DD and
// everything else as RFC 3339.
func FormatTime(t time.Time) string {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// Interface returns the natural Go value: nil, string, float64, bool or time.Time.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// MarshalJSON encodes times as strings and everything else natively.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindTime:
		return json.Marshal(FormatTime(v.t))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes JSON scalars. Strings stay strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null
	case string:
		*v = String(x)
	case float64:
		*v = Number(x)
	case bool:
		*v = Bool(x)
	default:
		*v = String(string(data))
	}
	return nil
}

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	}
	return true
}
