// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package mapping

import (
	"errors"
	"fmt"

	"github.com/tomtom215/flexsync/internal/models"
)

// SourceKind describes how a collection is enumerated during the list phase.
type SourceKind int

const (
	// SourcePaged walks GET {Path}?page=N&size=S until totalPages is reached.
	SourcePaged SourceKind = iota
	// SourceUnpaged issues one GET {Path} returning every record.
	SourceUnpaged
	// SourcePerParent issues GET {Path}?{ParentParam}={id} for each stored
	// parent record and injects the parent id into every child.
	SourcePerParent
	// SourceReferenced takes the distinct values of ParentColumn in the
	// parent table as identifiers. Rows start as stubs and are filled in by
	// the detail phase.
	SourceReferenced
)

func (k SourceKind) String() string {
	switch k {
	case SourcePaged:
		return "paged"
	case SourceUnpaged:
		return "unpaged"
	case SourcePerParent:
		return "per-parent"
	case SourceReferenced:
		return "referenced"
	}
	return "unknown"
}

// Phase selects which projection of a collection is built.
type Phase int

const (
	ListPhase Phase = iota
	DetailPhase
)

// Field maps one remote path to one local column.
type Field struct {
	// Remote is a dotted path into the remote record, e.g. "referenceData.group.id".
	Remote string
	Column string
	Kind   Kind
	// DetailOnly fields are projected only from detail payloads. List
	// payloads that omit them must not blank out stored values.
	DetailOnly bool
}

// Collection is the declarative description of one synchronized entity type.
type Collection struct {
	Name        string
	Table       string
	Description string

	Source SourceKind
	// Path is the list endpoint relative to the API base URL.
	Path string
	// Params are fixed query parameters added to every list request.
	Params map[string]string

	// Parent names the collection that drives per-parent and referenced sources.
	Parent       string
	ParentParam  string
	InjectField  string
	ParentColumn string

	// DetailPath enables the detail phase: GET {DetailPath}/{id}.
	DetailPath string

	// IDField is the remote identifier path. Defaults to "id".
	IDField string

	Fields []Field
}

// ErrMissingID is returned when a remote record carries no identifier.
var ErrMissingID = errors.New("record has no remote identifier")

// FieldError reports a value that could not be normalized for its column.
type FieldError struct {
	Column string
	Remote string
	Kind   Kind
	Value  any
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s (%s -> %s): %v", e.Remote, e.Column, e.Kind, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// TwoPhase reports whether the collection has a detail phase.
func (c *Collection) TwoPhase() bool { return c.DetailPath != "" }

func (c *Collection) idField() string {
	if c.IDField == "" {
		return "id"
	}
	return c.IDField
}

// RemoteID extracts the record identifier.
func (c *Collection) RemoteID(doc models.Document) (string, bool) {
	return doc.ID(c.idField())
}

// Stub builds the placeholder record a referenced collection enumerates.
func (c *Collection) Stub(id string) models.Document {
	return models.Document{c.idField(): id}
}

// Columns returns the mapped columns projected in phase.
func (c *Collection) Columns(phase Phase) []Field {
	if phase == DetailPhase {
		return c.Fields
	}
	out := make([]Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		if !f.DetailOnly {
			out = append(out, f)
		}
	}
	return out
}

// Project maps doc into an EntityRecord. It never partially succeeds: the
// first field that cannot be normalized fails the whole record.
func (c *Collection) Project(doc models.Document, phase Phase) (*models.EntityRecord, error) {
	id, ok := c.RemoteID(doc)
	if !ok {
		return nil, ErrMissingID
	}

	fields := c.Columns(phase)
	rec := &models.EntityRecord{
		RemoteID: id,
		Values:   make([]models.ColumnValue, 0, len(fields)),
	}
	for _, f := range fields {
		raw, _ := doc.Lookup(f.Remote)
		v, err := Normalize(f.Kind, raw)
		if err != nil {
			return nil, &FieldError{Column: f.Column, Remote: f.Remote, Kind: f.Kind, Value: raw, Err: err}
		}
		rec.Values = append(rec.Values, models.ColumnValue{Column: f.Column, Value: v})
	}

	payload, err := doc.Canonical()
	if err != nil {
		return nil, err
	}
	rec.Payload = payload
	return rec, nil
}
