// Package record holds the candidate records supplied by the collector and a typed
// dot-path lookup over their open maps.
package record

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Well-known record keys.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldPosition  = "position"
	FieldCompany   = "company"
	FieldSkills    = "skills"
	FieldSchools   = "schools"
	FieldEducation = "education"
)

// Record is a candidate as delivered by the collector: an open JSON object.
type Record map[string]any

// Kind enumerates the closed set of shapes a looked-up value may take.
type Kind int

const (
	Absent Kind = iota
	String
	Number
	Strings
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Strings:
		return "strings"
	default:
		return "absent"
	}
}

// Value is the result of a Lookup.
type Value struct {
	kind Kind
	str  string
	num  float64
	list []string
}

// StringValue, NumberValue and ListValue build values directly, mostly for tests.
func StringValue(s string) Value      { return Value{kind: String, str: s} }
func NumberValue(n float64) Value     { return Value{kind: Number, num: n} }
func ListValue(items ...string) Value { return Value{kind: Strings, list: items} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsAbsent() bool  { return v.kind == Absent }
func (v Value) Number() float64 { return v.num }

// Texts returns the textual forms of the value: one entry for scalars, every
// element for lists and nothing when absent.
func (v Value) Texts() []string {
	switch v.kind {
	case String:
		return []string{v.str}
	case Number:
		return []string{strconv.FormatFloat(v.num, 'f', -1, 64)}
	case Strings:
		return v.list
	default:
		return nil
	}
}

// Empty reports whether the value carries no usable content.
func (v Value) Empty() bool {
	switch v.kind {
	case String:
		return strings.TrimSpace(v.str) == ""
	case Strings:
		for _, item := range v.list {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case Number:
		return false
	default:
		return true
	}
}

// Float parses the value as a number. Lists never parse.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Number:
		return v.num, true
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Lookup resolves a dot-separated path ("a.b.c") on the record. Numeric segments
// index into arrays. Any missing intermediate yields an absent value.
func Lookup(r Record, path string) Value {
	path = strings.TrimSpace(path)
	if r == nil || path == "" {
		return Value{}
	}

	var current any = map[string]any(r)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return Value{}
			}
			current = next
		case Record:
			next, ok := node[segment]
			if !ok {
				return Value{}
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return Value{}
			}
			current = node[idx]
		case []string:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return Value{}
			}
			current = node[idx]
		default:
			return Value{}
		}
	}

	return valueOf(current)
}

func valueOf(raw any) Value {
	switch val := raw.(type) {
	case nil:
		return Value{}
	case string:
		return StringValue(val)
	case bool:
		return StringValue(strconv.FormatBool(val))
	case float64:
		return NumberValue(val)
	case float32:
		return NumberValue(float64(val))
	case int:
		return NumberValue(float64(val))
	case int64:
		return NumberValue(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return NumberValue(f)
		}
		return StringValue(val.String())
	case []string:
		return ListValue(val...)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, valueOf(item).Texts()...)
		}
		return ListValue(items...)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return Value{}
		}
		return StringValue(string(data))
	}
}

// ID returns the record identifier in its textual form.
func (r Record) ID() string {
	texts := Lookup(r, FieldID).Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[0]
}

// Texts is a shortcut for Lookup(r, path).Texts().
func (r Record) Texts(path string) []string {
	return Lookup(r, path).Texts()
}
