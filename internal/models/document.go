// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Document is one remote record as returned by the upstream API.
//
// Values are the decoded JSON variants: string, json.Number, bool, nil,
// []any and map[string]any. Numbers are kept as json.Number so identifiers
// and monetary amounts survive the round trip without float rounding.
type Document map[string]any

// DecodeDocument parses a single JSON object into a Document.
func DecodeDocument(data []byte) (Document, error) {
	var doc Document
	if err := decodeJSON(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("expected JSON object, got null")
	}
	return doc, nil
}

// DecodeDocuments parses either a bare JSON array of objects or an object
// carrying the array under "content". Reference endpoints use both shapes.
func DecodeDocuments(data []byte) ([]Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var docs []Document
		if err := decodeJSON(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var wrapped struct {
		Content []Document `json:"content"`
	}
	if err := decodeJSON(trimmed, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Content, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	return nil
}

// Lookup resolves a dotted path such as "referenceData.group.id".
// The second result is false when any segment is missing or a non-object
// is traversed.
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, key := range strings.Split(path, ".") {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// ID returns the record identifier stored under field as a string.
// Numeric identifiers are rendered without exponent or fraction.
func (d Document) ID(field string) (string, bool) {
	v, ok := d.Lookup(field)
	if !ok || v == nil {
		return "", false
	}
	s, ok := ScalarString(v)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ScalarString renders a JSON scalar as text. Objects and arrays are not scalars.
func ScalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

// With returns a shallow copy of d with field set to value.
func (d Document) With(field string, value any) Document {
	out := make(Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[field] = value
	return out
}

// Canonical serializes the document with sorted keys. Two structurally
// equal documents always produce identical bytes.
func (d Document) Canonical() (string, error) {
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}
