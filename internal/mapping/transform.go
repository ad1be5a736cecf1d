// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package mapping

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/flexsync/internal/models"
)

// Kind is the typed column a remote value is normalized into.
type Kind int

const (
	Text Kind = iota
	Integer
	Real
	Bool
	Decimal
	JSON
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Bool:
		return "bool"
	case Decimal:
		return "decimal"
	case JSON:
		return "json"
	case Timestamp:
		return "timestamp"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var errNotScalar = errors.New("value is an object or array")

// DecimalPrecision and DecimalScale bound money columns. Values are rounded
// to DecimalScale places and must fit in DecimalPrecision digits.
const (
	DecimalPrecision = 18
	DecimalScale     = 4
)

// decimalLimit is the smallest magnitude a money column cannot hold.
var decimalLimit = decimal.New(1, DecimalPrecision-DecimalScale)

// int64 bounds as float64. 2^63 itself is not representable as int64.
const (
	maxInt64Float = 9.223372036854775807e18
	minInt64Float = -9.223372036854775808e18
)

// timestampLayouts are the date formats seen in remote payloads.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts one decoded JSON value into the Go value stored for kind.
// Absent and null values normalize to nil for every kind.
func Normalize(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case Text:
		s, ok := models.ScalarString(v)
		if !ok {
			return nil, errNotScalar
		}
		return s, nil
	case Integer:
		return toInt(v)
	case Real:
		return toFloat(v)
	case Bool:
		return toBool(v)
	case Decimal:
		return toDecimal(v)
	case JSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case Timestamp:
		return toTime(v)
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

func toInt(v any) (any, error) {
	s, ok := models.ScalarString(v)
	if !ok {
		return nil, errNotScalar
	}
	if _, isBool := v.(bool); isBool {
		return nil, fmt.Errorf("boolean %s is not an integer", s)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	if f >= maxInt64Float || f < minInt64Float {
		return nil, fmt.Errorf("%q is out of range for a 64-bit integer", s)
	}
	return int64(f), nil
}

func toFloat(v any) (any, error) {
	s, ok := models.ScalarString(v)
	if !ok {
		return nil, errNotScalar
	}
	if _, isBool := v.(bool); isBool {
		return nil, fmt.Errorf("boolean %s is not a number", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}

func toBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case json.Number:
		switch t.String() {
		case "0":
			return false, nil
		case "1":
			return true, nil
		}
		return nil, fmt.Errorf("number %s is not a boolean", t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y":
			return true, nil
		case "false", "0", "no", "n", "":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", t)
	}
	return nil, errNotScalar
}

func toDecimal(v any) (any, error) {
	s, ok := models.ScalarString(v)
	if !ok {
		return nil, errNotScalar
	}
	if _, isBool := v.(bool); isBool {
		return nil, fmt.Errorf("boolean %s is not a decimal", s)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%q is not a decimal: %w", s, err)
	}
	d = d.Round(DecimalScale)
	if d.Abs().GreaterThanOrEqual(decimalLimit) {
		return nil, fmt.Errorf("%q is out of range for DECIMAL(%d,%d)", s, DecimalPrecision, DecimalScale)
	}
	return d, nil
}

func toTime(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s is not an epoch timestamp", t)
		}
		return time.UnixMilli(ms).UTC(), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC(), nil
			}
		}
		return nil, fmt.Errorf("%q is not a recognized timestamp", t)
	}
	return nil, errNotScalar
}
