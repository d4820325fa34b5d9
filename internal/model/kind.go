package model

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// DefaultIDAttribute is the identity attribute used when a Kind names none.
const DefaultIDAttribute = "id"

// Validator checks a prospective attribute set. A nil error means valid.
type Validator func(attrs Attributes, opts *Options) error

// Parser converts a raw sync response into attributes.
type Parser func(response any) (Attributes, error)

// Kind describes a family of records: their defaults, identity attribute,
// validation, response parsing and persistence.
type Kind struct {
	// Name identifies the kind in errors and logs.
	Name string

	// IDAttribute is the attribute holding the record identity.
	IDAttribute string

	// Defaults are merged under the attributes of every new record.
	Defaults Attributes

	// Validate is consulted on every mutation that notifies.
	Validate Validator

	// Parse converts sync responses. When nil, responses are decoded by
	// DecodeAttributes using RootPath.
	Parse Parser

	// RootPath is a gjson path selecting the attributes inside a raw JSON
	// response envelope, such as "data" or "result.item".
	RootPath string

	// URLRoot is the resource location of records outside a collection.
	URLRoot string

	// Sync persists records of this kind.
	Sync Syncer

	// Initialize runs once at the end of record construction.
	Initialize func(*Record)
}

// New creates a record of this kind.
func (k *Kind) New(attrs Attributes, opts ...Option) *Record {
	return NewRecord(k, attrs, opts...)
}

func (k *Kind) idAttribute() string {
	if k.IDAttribute == "" {
		return DefaultIDAttribute
	}
	return k.IDAttribute
}

func (k *Kind) parse(response any) (Attributes, error) {
	if k.Parse != nil {
		return k.Parse(response)
	}
	return DecodeAttributes(response, k.RootPath)
}

// DecodeAttributes converts a response into attributes. Maps are used as
// they are; raw JSON is decoded, optionally selecting the value at the gjson
// path root first.
func DecodeAttributes(response any, root string) (Attributes, error) {
	v, err := decode(response, root)
	if err != nil || v == nil {
		return nil, err
	}
	attrs, ok := asAttributes(v)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %T", ErrUnparseable, v)
	}
	return attrs, nil
}

// DecodeList converts a response into a list of attribute sets. It accepts
// the same inputs as DecodeAttributes, with a list at the root.
func DecodeList(response any, root string) ([]Attributes, error) {
	v, err := decode(response, root)
	if err != nil || v == nil {
		return nil, err
	}
	switch list := v.(type) {
	case []Attributes:
		return list, nil
	case []map[string]any:
		out := make([]Attributes, len(list))
		for i, m := range list {
			out[i] = Attributes(m)
		}
		return out, nil
	case []any:
		out := make([]Attributes, 0, len(list))
		for i, item := range list {
			attrs, ok := asAttributes(item)
			if !ok {
				return nil, fmt.Errorf("%w: item %d is %T", ErrUnparseable, i, item)
			}
			out = append(out, attrs)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrUnparseable, v)
	}
}

// decode normalises a response to Go values, applying root to JSON.
func decode(response any, root string) (any, error) {
	var raw []byte
	switch v := response.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	case string:
		raw = []byte(v)
	default:
		if root == "" {
			return response, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		raw = b
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrUnparseable)
	}
	result := gjson.ParseBytes(raw)
	if root != "" {
		result = result.Get(root)
		if !result.Exists() {
			return nil, fmt.Errorf("%w: path %q not found", ErrUnparseable, root)
		}
	}
	return result.Value(), nil
}

func asAttributes(v any) (Attributes, bool) {
	switch m := v.(type) {
	case Attributes:
		return m, true
	case map[string]any:
		return Attributes(m), true
	default:
		return nil, false
	}
}
