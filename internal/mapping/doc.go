// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

// Package mapping declares how remote collections map onto local tables.
//
// Each Collection is a static table of (remote path, column, kind) fields
// plus the endpoints used to enumerate and detail it. A single generic
// reconciliation routine consumes these tables; there is no per-entity
// insert or update code.
//
// Kinds normalize remote JSON values:
//
//	Text       scalar rendered as text
//	Integer    int64, integral numbers only
//	Real       float64
//	Bool       true/false, 1/0, "yes"/"no"
//	Decimal    shopspring decimal, exact
//	JSON       serialized blob for nested structures
//	Timestamp  RFC 3339 and Flex date formats, or epoch milliseconds
//
// Nested objects are flattened by pointing Remote at a sub-field
// ("unitOfMeasureIdentity.id") or kept whole with the JSON kind.
package mapping
