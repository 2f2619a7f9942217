// Package tagtree decodes chunk tag trees and provides typed access to their
// fields.
package tagtree

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/Tnze/go-mc/nbt"
)

var (
	// ErrFormat is returned for corrupt or truncated tag tree.
	ErrFormat = errors.New("malformed tag tree")
	// ErrNotFound is returned by accessors when key is absent.
	ErrNotFound = errors.New("tag not found")
	// ErrTypeMismatch is returned by accessors when stored value has
	// different type.
	ErrTypeMismatch = errors.New("tag type mismatch")
)

// Compound is decoded compound tag: named values of any tag type. Nested
// compounds are map[string]any, lists are slices.
type Compound map[string]any

// Parse decodes tag tree with compound root.
func Parse(r io.Reader) (Compound, error) {
	_, c, err := ParseNamed(r)
	return c, err
}

// ParseNamed decodes tag tree and returns root name with it.
func ParseNamed(r io.Reader) (string, Compound, error) {
	var root map[string]any
	name, err := nbt.NewDecoder(r).Decode(&root)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if root == nil {
		root = map[string]any{}
	}
	return name, Compound(root), nil
}

func (c Compound) lookup(key string) (any, error) {
	v, ok := c[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return v, nil
}

func mismatch(key, want string, v any) error {
	return fmt.Errorf("%w: %q is %s, not %s", ErrTypeMismatch, key, TypeName(v), want)
}

// Compound returns nested compound stored under key.
func (c Compound) Compound(key string) (Compound, error) {
	v, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case map[string]any:
		return Compound(m), nil
	case Compound:
		return m, nil
	}
	return nil, mismatch(key, "compound", v)
}

// Int32 returns integer tag stored under key.
func (c Compound) Int32(key string) (int32, error) {
	v, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	i, ok := v.(int32)
	if !ok {
		return 0, mismatch(key, "int", v)
	}
	return i, nil
}

// String returns string tag stored under key.
func (c Compound) String(key string) (string, error) {
	v, err := c.lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", mismatch(key, "string", v)
	}
	return s, nil
}

// List returns elements of list tag stored under key. Typed arrays (byte,
// int and long arrays) are not lists.
func (c Compound) List(key string) ([]any, error) {
	v, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	l, ok := asList(v)
	if !ok {
		return nil, mismatch(key, "list", v)
	}
	return l, nil
}

// CompoundList returns list of compounds stored under key. Empty list of any
// element type qualifies.
func (c Compound) CompoundList(key string) ([]Compound, error) {
	l, err := c.List(key)
	if err != nil {
		return nil, err
	}
	out := make([]Compound, 0, len(l))
	for i, e := range l {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q element %d is %s, not compound", ErrTypeMismatch, key, i, TypeName(e))
		}
		out = append(out, Compound(m))
	}
	return out, nil
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case nil:
		// empty list with end element type
		return nil, true
	case []byte, []int32, []int64, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// TypeName returns tag type name for decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case int8:
		return "byte"
	case int16:
		return "short"
	case int32:
		return "int"
	case int64:
		return "long"
	case float32:
		return "float"
	case float64:
		return "double"
	case string:
		return "string"
	case []byte:
		return "byte[]"
	case []int32:
		return "int[]"
	case []int64:
		return "long[]"
	case map[string]any, Compound:
		return "compound"
	case nil:
		return "end"
	}
	if _, ok := asList(v); ok {
		return "list"
	}
	return fmt.Sprintf("%T", v)
}
