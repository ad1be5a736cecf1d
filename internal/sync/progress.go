// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package sync

import (
	"fmt"
	"io"
	"time"

	"github.com/tomtom215/flexsync/internal/models"
)

// progress prints periodic stdout lines for one phase.
type progress struct {
	w     io.Writer
	name  string
	phase string
	total int64
	every int
	start time.Time
	now   func() time.Time
	done  int64
}

func newProgress(w io.Writer, name, phase string, total int64, every int, now func() time.Time) *progress {
	if w == nil {
		w = io.Discard
	}
	return &progress{w: w, name: name, phase: phase, total: total, every: every, start: now(), now: now}
}

// setTotal updates the expected record count once it is known.
func (p *progress) setTotal(total int64) {
	if total > p.total {
		p.total = total
	}
}

// tick counts one processed record and prints a line every p.every records.
func (p *progress) tick(stats *models.SyncStats) {
	p.done++
	if p.every <= 0 || p.done%int64(p.every) != 0 {
		return
	}
	p.print(stats)
}

func (p *progress) print(stats *models.SyncStats) {
	elapsed := p.now().Sub(p.start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed.Seconds()
	}

	line := fmt.Sprintf("  [%s] %s %d", p.name, p.phase, p.done)
	if p.total > 0 {
		pct := float64(p.done) / float64(p.total) * 100
		line += fmt.Sprintf("/%d (%.1f%%)", p.total, pct)
		if rate > 0 && p.done < p.total {
			eta := time.Duration(float64(p.total-p.done) / rate * float64(time.Second))
			line += fmt.Sprintf(" ETA %s", eta.Round(time.Second))
		}
	}
	line += fmt.Sprintf(" %.1f rec/s | inserted=%d updated=%d details=%d errors=%d",
		rate, stats.Inserted, stats.Updated, stats.DetailsFetched, stats.Failed)
	fmt.Fprintln(p.w, line)
}

// printSummary writes the final line of a run. It is printed for every
// run, whatever its status.
func printSummary(w io.Writer, r *RunReport) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%s: %s in %s | fetched=%d inserted=%d updated=%d details=%d not_found=%d errors=%d",
		r.Collection, r.Status, r.Duration.Round(time.Millisecond),
		r.Stats.Fetched, r.Stats.Inserted, r.Stats.Updated,
		r.Stats.DetailsFetched, r.Stats.NotFound, r.Stats.Failed)
	if r.Pending > 0 {
		fmt.Fprintf(w, " pending=%d", r.Pending)
	}
	if r.Message != "" {
		fmt.Fprintf(w, " (%s)", r.Message)
	}
	fmt.Fprintln(w)
}
