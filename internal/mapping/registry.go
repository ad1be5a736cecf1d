// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package mapping

import (
	"fmt"
	"regexp"
	"strings"
)

// ReservedColumns are managed by the store and may not be mapped.
var ReservedColumns = map[string]bool{
	"id":                true,
	"remote_id":         true,
	"payload":           true,
	"detail_payload":    true,
	"detail_fetched":    true,
	"detail_fetched_at": true,
	"remote_deleted":    true,
	"created_at":        true,
	"updated_at":        true,
}

var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Registry holds the collections in dependency order: every parent is
// registered before the collections that derive from it.
type Registry struct {
	order  []*Collection
	byName map[string]*Collection
}

// NewRegistry validates and indexes cols. Order is preserved and must
// already place parents first.
func NewRegistry(cols ...*Collection) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Collection, len(cols))}
	tables := make(map[string]string, len(cols))

	for _, c := range cols {
		if err := validateCollection(c); err != nil {
			return nil, err
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("collection %q registered twice", c.Name)
		}
		if other, dup := tables[c.Table]; dup {
			return nil, fmt.Errorf("collections %q and %q share table %q", other, c.Name, c.Table)
		}
		if c.Source == SourcePerParent || c.Source == SourceReferenced {
			parent, ok := r.byName[c.Parent]
			if !ok {
				return nil, fmt.Errorf("collection %q: parent %q must be registered first", c.Name, c.Parent)
			}
			if c.Source == SourceReferenced && !parent.hasColumn(c.ParentColumn) {
				return nil, fmt.Errorf("collection %q: parent %q has no column %q", c.Name, c.Parent, c.ParentColumn)
			}
		}
		r.order = append(r.order, c)
		r.byName[c.Name] = c
		tables[c.Table] = c.Name
	}
	return r, nil
}

// MustRegistry is NewRegistry for static definitions; it panics on error.
func MustRegistry(cols ...*Collection) *Registry {
	r, err := NewRegistry(cols...)
	if err != nil {
		panic(err)
	}
	return r
}

func validateCollection(c *Collection) error {
	if c == nil {
		return fmt.Errorf("nil collection")
	}
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if !identifierRe.MatchString(c.Table) {
		return fmt.Errorf("collection %q: invalid table name %q", c.Name, c.Table)
	}
	if strings.HasPrefix(c.Table, "sync_") || c.Table == "schema_migrations" {
		return fmt.Errorf("collection %q: table name %q is reserved", c.Name, c.Table)
	}

	switch c.Source {
	case SourcePaged, SourceUnpaged:
		if c.Path == "" {
			return fmt.Errorf("collection %q: list path is required", c.Name)
		}
	case SourcePerParent:
		if c.Path == "" || c.Parent == "" || c.ParentParam == "" {
			return fmt.Errorf("collection %q: per-parent source needs path, parent and parent param", c.Name)
		}
	case SourceReferenced:
		if c.Parent == "" || c.ParentColumn == "" {
			return fmt.Errorf("collection %q: referenced source needs parent and parent column", c.Name)
		}
		if c.DetailPath == "" {
			return fmt.Errorf("collection %q: referenced source needs a detail path", c.Name)
		}
	default:
		return fmt.Errorf("collection %q: unknown source kind %d", c.Name, c.Source)
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if !identifierRe.MatchString(f.Column) {
			return fmt.Errorf("collection %q: invalid column name %q", c.Name, f.Column)
		}
		if ReservedColumns[f.Column] {
			return fmt.Errorf("collection %q: column %q is reserved", c.Name, f.Column)
		}
		if seen[f.Column] {
			return fmt.Errorf("collection %q: column %q mapped twice", c.Name, f.Column)
		}
		if f.Remote == "" {
			return fmt.Errorf("collection %q: column %q has no remote path", c.Name, f.Column)
		}
		if f.DetailOnly && !c.TwoPhase() {
			return fmt.Errorf("collection %q: column %q is detail-only but there is no detail path", c.Name, f.Column)
		}
		seen[f.Column] = true
	}
	return nil
}

func (c *Collection) hasColumn(col string) bool {
	for _, f := range c.Fields {
		if f.Column == col {
			return true
		}
	}
	return false
}

// Get returns the collection registered under name.
func (r *Registry) Get(name string) (*Collection, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// All returns every collection in dependency order.
func (r *Registry) All() []*Collection {
	out := make([]*Collection, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns collection names in dependency order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, c := range r.order {
		names[i] = c.Name
	}
	return names
}

// Ordered returns the named collections in dependency order. An empty
// selection returns all collections.
func (r *Registry) Ordered(names []string) ([]*Collection, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			return nil, fmt.Errorf("unknown collection %q", n)
		}
		want[n] = true
	}
	out := make([]*Collection, 0, len(want))
	for _, c := range r.order {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}
