// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/mapping"
	"github.com/tomtom215/flexsync/internal/models"
)

// Batch is one unit of list-phase input: a page, an unpaginated listing,
// the children of one parent, or a slice of referenced stubs.
type Batch struct {
	Page       int
	TotalPages int
	// TotalElements is the remote's count for paged sources, 0 otherwise.
	TotalElements int64
	// Parent is set for per-parent batches.
	Parent  string
	Records []models.Document
}

// Parents supplies the identifiers that drive per-parent and referenced
// collections, read from the local store.
type Parents func(ctx context.Context, coll *mapping.Collection) ([]string, error)

// Fetcher enumerates remote collections. Requests are strictly sequential.
type Fetcher struct {
	api      RemoteAPI
	exec     *Executor
	pageSize int
}

// NewFetcher creates a Fetcher.
func NewFetcher(api RemoteAPI, exec *Executor, pageSize int) *Fetcher {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Fetcher{api: api, exec: exec, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (f *Fetcher) PageSize() int { return f.pageSize }

// Pages walks a paged collection. Page 0 establishes totalPages; pages
// 1..totalPages-1 follow in order. The sequence ends after the first error:
// page-index pagination can only restart from page 0.
func (f *Fetcher) Pages(ctx context.Context, coll *mapping.Collection) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		params := ParamsOf(coll.Params)
		totalPages := -1
		var totalElements int64
		var yielded int64

		for page := 0; totalPages < 0 || page < totalPages; page++ {
			if err := ctx.Err(); err != nil {
				yield(Batch{Page: page}, err)
				return
			}

			op := fmt.Sprintf("%s page %d", coll.Name, page)
			p, err := Retry(ctx, f.exec, op, func(ctx context.Context) (*models.Page, error) {
				return f.api.GetPage(ctx, coll.Path, params, page, f.pageSize)
			})
			if errors.Is(err, ErrNotFound) && page == 0 {
				return
			}
			if err != nil {
				yield(Batch{Page: page}, err)
				return
			}

			if p.TotalPages == nil || p.TotalElements == nil {
				yield(Batch{Page: page}, &PaginationError{Collection: coll.Name, Page: page, Reason: "response has no totalPages/totalElements"})
				return
			}
			if *p.TotalPages < 0 || *p.TotalElements < 0 {
				yield(Batch{Page: page}, &PaginationError{Collection: coll.Name, Page: page, Reason: "negative totals"})
				return
			}
			if totalPages < 0 {
				totalPages = *p.TotalPages
				totalElements = *p.TotalElements
				logging.Ctx(ctx).Debug().
					Str("collection", coll.Name).
					Int("total_pages", totalPages).
					Int64("total_elements", totalElements).
					Msg("Pagination established")
			} else if *p.TotalPages != totalPages {
				yield(Batch{Page: page}, &PaginationError{
					Collection: coll.Name,
					Page:       page,
					Reason:     fmt.Sprintf("totalPages changed from %d to %d", totalPages, *p.TotalPages),
				})
				return
			}
			if len(p.Content) > f.pageSize {
				yield(Batch{Page: page}, &PaginationError{
					Collection: coll.Name,
					Page:       page,
					Reason:     fmt.Sprintf("page holds %d records, more than page size %d", len(p.Content), f.pageSize),
				})
				return
			}

			yielded += int64(len(p.Content))
			batch := Batch{Page: page, TotalPages: totalPages, TotalElements: totalElements, Records: p.Content}
			if !yield(batch, nil) {
				return
			}
		}

		if yielded != totalElements {
			logging.Ctx(ctx).Warn().
				Str("collection", coll.Name).
				Int64("expected", totalElements).
				Int64("received", yielded).
				Msg("Record count differs from totalElements, remote changed during the scan")
		}
	}
}

// Enumerate yields the list-phase input of coll according to its source
// kind. For per-parent sources an error on one parent is yielded and the
// walk continues with the next parent if the consumer asks for more.
func (f *Fetcher) Enumerate(ctx context.Context, coll *mapping.Collection, parents Parents) iter.Seq2[Batch, error] {
	switch coll.Source {
	case mapping.SourcePaged:
		return f.Pages(ctx, coll)
	case mapping.SourceUnpaged:
		return f.unpaged(ctx, coll)
	case mapping.SourcePerParent:
		return f.perParent(ctx, coll, parents)
	case mapping.SourceReferenced:
		return f.referenced(ctx, coll, parents)
	}
	return func(yield func(Batch, error) bool) {
		yield(Batch{}, fmt.Errorf("collection %s: unsupported source %s", coll.Name, coll.Source))
	}
}

func (f *Fetcher) unpaged(ctx context.Context, coll *mapping.Collection) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		docs, err := Retry(ctx, f.exec, coll.Name+" list", func(ctx context.Context) ([]models.Document, error) {
			return f.api.GetList(ctx, coll.Path, ParamsOf(coll.Params))
		})
		if errors.Is(err, ErrNotFound) {
			return
		}
		if err != nil {
			yield(Batch{}, err)
			return
		}
		yield(Batch{TotalPages: 1, Records: docs}, nil)
	}
}

func (f *Fetcher) perParent(ctx context.Context, coll *mapping.Collection, parents Parents) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		ids, err := parents(ctx, coll)
		if err != nil {
			yield(Batch{}, fatal("load parents of "+coll.Name, err))
			return
		}

		for _, parentID := range ids {
			if err := ctx.Err(); err != nil {
				yield(Batch{Parent: parentID}, err)
				return
			}

			params := ParamsOf(coll.Params)
			params.Set(coll.ParentParam, parentID)
			docs, err := Retry(ctx, f.exec, coll.Name+" of "+parentID, func(ctx context.Context) ([]models.Document, error) {
				return f.api.GetList(ctx, coll.Path, params)
			})
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				if !yield(Batch{Parent: parentID}, err) {
					return
				}
				continue
			}

			if coll.InjectField != "" {
				for i, doc := range docs {
					docs[i] = doc.With(coll.InjectField, parentID)
				}
			}
			if !yield(Batch{Parent: parentID, Records: docs}, nil) {
				return
			}
		}
	}
}

func (f *Fetcher) referenced(ctx context.Context, coll *mapping.Collection, parents Parents) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		ids, err := parents(ctx, coll)
		if err != nil {
			yield(Batch{}, fatal("load references of "+coll.Name, err))
			return
		}

		for start := 0; start < len(ids); start += f.pageSize {
			end := min(start+f.pageSize, len(ids))
			stubs := make([]models.Document, 0, end-start)
			for _, id := range ids[start:end] {
				stubs = append(stubs, coll.Stub(id))
			}
			if !yield(Batch{Page: start / f.pageSize, TotalElements: int64(len(ids)), Records: stubs}, nil) {
				return
			}
		}
	}
}

// FetchDetail fetches the detail payload of one record. A 404 is reported
// as found=false with a nil error.
func (f *Fetcher) FetchDetail(ctx context.Context, coll *mapping.Collection, id string) (models.Document, bool, error) {
	doc, err := Retry(ctx, f.exec, coll.Name+" detail "+id, func(ctx context.Context) (models.Document, error) {
		return f.api.GetRecord(ctx, coll.DetailPath, id)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}
