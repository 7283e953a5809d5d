// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LastModifiedField is the key under which a configuration tree carries its
// modification timestamp in epoch milliseconds.
const LastModifiedField = "lastModified"

// VersionField is the key under which a merged configuration tree carries the
// remote version it was produced for.
const VersionField = "version"

// Config is a JSON-shaped configuration tree (project registry, settings).
//
// Values are restricted to the types produced by encoding/json when decoding
// into an interface: map[string]any, []any, string, float64, bool and nil.
// Use [Normalize] to bring arbitrary input into that shape.
type Config map[string]any

// Clone returns a deep copy of c. A nil Config clones to nil.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return cloneValue(map[string]any(c)).(map[string]any)
}

// LastModified returns the epoch-millisecond timestamp stored under
// [LastModifiedField] and whether it was present and numeric.
func (c Config) LastModified() (int64, bool) {
	v, ok := c[LastModifiedField]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// Normalize converts any JSON-marshalable value into a [Config] by encoding
// and decoding it. Integers become float64, structs become maps.
func Normalize(v any) (Config, error) {
	if v == nil {
		return nil, nil
	}
	if c, ok := v.(Config); ok {
		v = map[string]any(c)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var out Config
	if err = json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("config must be a JSON object: %w", err)
	}
	return out, nil
}

// Marshal serializes c deterministically: object keys are sorted at every
// level and HTML characters are not escaped. Content hashes are computed over
// this representation, so two equal trees always hash identically.
func Marshal(c Config) ([]byte, error) {
	return MarshalValue(map[string]any(c))
}

// MarshalValue is [Marshal] for an arbitrary JSON value.
func MarshalValue(v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("serialize config: %w", err)
	}
	// Encode always appends a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Unmarshal decodes a serialized configuration tree.
func Unmarshal(data []byte) (Config, error) {
	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("deserialize config: %w", err)
	}
	return out, nil
}

// CloneValue deep-copies a JSON value (maps and slices are copied, scalars
// are returned as-is).
func CloneValue(v any) any {
	return cloneValue(v)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Config:
		return Config(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
