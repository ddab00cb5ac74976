package models

import (
	"bytes"
	"encoding/json"
)

// Patch distinguishes a JSON key that is absent, present as null, or present
// with a value.
type Patch[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (p *Patch[T]) UnmarshalJSON(b []byte) error {
	p.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		p.Null = true
		var zero T
		p.Value = zero
		return nil
	}
	p.Null = false
	return json.Unmarshal(b, &p.Value)
}

func (p Patch[T]) MarshalJSON() ([]byte, error) {
	if !p.Set || p.Null {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// Some is a convenience constructor for a patch that sets a value.
func Some[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Value: v}
}

// Null is a patch that explicitly clears the field.
func Null[T any]() Patch[T] {
	return Patch[T]{Set: true, Null: true}
}
