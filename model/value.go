package model

import (
	"github.com/goccy/go-json"
)

type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueText
	ValueNumber
	ValueStructured
	ValueFile
)

// Value is an answer payload with exactly one populated slot. The kind tag
// replaces the "which column is set" ambiguity of the storage schema: a
// numeric 0 or an empty string is a present value, only ValueAbsent is not.
type Value struct {
	kind       ValueKind
	text       string
	number     float64
	structured any
	fileRef    string
}

func TextValue(s string) Value    { return Value{kind: ValueText, text: s} }
func NumberValue(n float64) Value { return Value{kind: ValueNumber, number: n} }
func StructuredValue(v any) Value { return Value{kind: ValueStructured, structured: v} }
func FileValue(ref string) Value  { return Value{kind: ValueFile, fileRef: ref} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsAbsent() bool  { return v.kind == ValueAbsent }
func (v Value) Text() string    { return v.text }
func (v Value) Number() float64 { return v.number }
func (v Value) Structured() any { return v.structured }
func (v Value) FileRef() string { return v.fileRef }

// Export returns the value to emit for tabular and JSON exports, following
// the text, number, structured slot priority. Presence is decided by the
// kind tag, never by truthiness, so 0 and "" round-trip intact.
func (v Value) Export() (any, bool) {
	switch v.kind {
	case ValueText:
		return v.text, true
	case ValueNumber:
		return v.number, true
	case ValueStructured:
		return v.structured, true
	case ValueFile:
		return v.fileRef, true
	}
	return nil, false
}

// Slots decomposes the value into the four nullable storage columns.
func (v Value) Slots() (text *string, number *float64, structuredJSON []byte, file *string, err error) {
	switch v.kind {
	case ValueText:
		text = &v.text
	case ValueNumber:
		number = &v.number
	case ValueStructured:
		structuredJSON, err = json.Marshal(v.structured)
	case ValueFile:
		file = &v.fileRef
	}
	return
}

// ValueFromSlots rebuilds a Value from storage columns, first non-nil slot
// in text, number, structured, file order.
func ValueFromSlots(text *string, number *float64, structuredJSON []byte, file *string) (Value, error) {
	switch {
	case text != nil:
		return TextValue(*text), nil
	case number != nil:
		return NumberValue(*number), nil
	case len(structuredJSON) > 0:
		var v any
		if err := json.Unmarshal(structuredJSON, &v); err != nil {
			return Value{}, err
		}
		return StructuredValue(v), nil
	case file != nil:
		return FileValue(*file), nil
	}
	return Value{}, nil
}

// valueWire is the four-slot JSON shape shared with clients.
type valueWire struct {
	Text       *string  `json:"value_text,omitempty"`
	Number     *float64 `json:"value_number,omitempty"`
	Structured any      `json:"value_json,omitempty"`
	File       *string  `json:"value_file,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	w := valueWire{}
	switch v.kind {
	case ValueText:
		w.Text = &v.text
	case ValueNumber:
		w.Number = &v.number
	case ValueStructured:
		w.Structured = v.structured
	case ValueFile:
		w.File = &v.fileRef
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Text != nil:
		*v = TextValue(*w.Text)
	case w.Number != nil:
		*v = NumberValue(*w.Number)
	case w.Structured != nil:
		*v = StructuredValue(w.Structured)
	case w.File != nil:
		*v = FileValue(*w.File)
	default:
		*v = Value{}
	}
	return nil
}
