// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package collector

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Document builds a JSON object by path with sjson. Errors are kept so
// calls can be chained; the first one wins and later calls are no-ops.
//
//	doc := Document{}.
//	    Set("device", "xrd-1").
//	    Set("error.type", "MODEL_NOT_SUPPORTED")
//	out, err := doc.String()
type Document struct {
	str string
	err error
}

// Set stores value at path. Structs and slices are marshalled with
// encoding/json.
func (d Document) Set(path string, value any) Document {
	if d.err != nil {
		return d
	}
	out, err := sjson.Set(d.str, path, value)
	if err != nil {
		return Document{str: d.str, err: fmt.Errorf("set %q: %w", path, err)}
	}
	return Document{str: out}
}

// SetRaw stores already encoded JSON at path.
func (d Document) SetRaw(path, raw string) Document {
	if d.err != nil {
		return d
	}
	out, err := sjson.SetRaw(d.str, path, raw)
	if err != nil {
		return Document{str: d.str, err: fmt.Errorf("set raw %q: %w", path, err)}
	}
	return Document{str: out}
}

// SetIf is Set when cond holds.
func (d Document) SetIf(cond bool, path string, value any) Document {
	if !cond {
		return d
	}
	return d.Set(path, value)
}

// Delete removes path.
func (d Document) Delete(path string) Document {
	if d.err != nil {
		return d
	}
	out, err := sjson.Delete(d.str, path)
	if err != nil {
		return Document{str: d.str, err: fmt.Errorf("delete %q: %w", path, err)}
	}
	return Document{str: out}
}

// String returns the document, or "{}" if nothing was set.
func (d Document) String() (string, error) {
	if d.err != nil {
		return "", d.err
	}
	if d.str == "" {
		return "{}", nil
	}
	return d.str, nil
}

// Err returns the first error recorded by a Set, SetRaw or Delete.
func (d Document) Err() error {
	return d.err
}
