// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package models

// Page is one page of a paginated collection listing.
//
// Totals are pointers so that a response missing the metadata can be told
// apart from an empty collection.
type Page struct {
	TotalElements *int64     `json:"totalElements"`
	TotalPages    *int       `json:"totalPages"`
	Content       []Document `json:"content"`
	Number        int        `json:"-"`
}

// DecodePage parses a paginated listing response.
func DecodePage(data []byte) (*Page, error) {
	var p Page
	if err := decodeJSON(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
