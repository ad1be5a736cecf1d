// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/flexsync/internal/models"
	flexsync "github.com/tomtom215/flexsync/internal/sync"
)

// NewSyncAllCommand creates the sync-all command.
func NewSyncAllCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync-all [collection...]",
		Short: "Synchronize several collections in dependency order",
		Long: `Synchronize the given collections, or sync.collections from the
configuration, or every collection. Parents run before the collections
enumerated from them. The batch stops early on an authentication failure
or when the remote throttles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncAll(cmd, opts, args)
		},
	}
	addSyncFlags(cmd, opts)

	return cmd
}

func runSyncAll(cmd *cobra.Command, opts *SyncOptions, names []string) error {
	mode, err := opts.mode()
	if err != nil {
		return err
	}

	a, err := openApp(opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(names) == 0 {
		names = a.cfg.Sync.Collections
	}
	for _, name := range names {
		if _, ok := a.registry.Get(name); !ok {
			return NewExitError(ExitCommandError, "unknown collection "+name+" (see 'flexsync collections')")
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	reports, runErr := a.orchestrator(a.remote(), progressWriter(opts.RootOptions, out)).RunAll(ctx, names, mode)

	if opts.Format == "json" {
		if err := writeJSON(out, reports, runErr); err != nil {
			return err
		}
	} else if len(reports) > 1 {
		var total models.SyncStats
		for _, r := range reports {
			total.Add(r.Stats)
		}
		fmt.Fprintf(out, "sync-all: %d collections | fetched=%d inserted=%d updated=%d details=%d errors=%d\n",
			len(reports), total.Fetched, total.Inserted, total.Updated, total.DetailsFetched, total.Failed)
	}

	if runErr != nil {
		return syncError(runErr)
	}
	if failed := countFailed(reports); failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d collection(s) failed", failed))
	}
	return nil
}

func countFailed(reports []*flexsync.RunReport) int {
	n := 0
	for _, r := range reports {
		if r.Status == models.RunStatusFailed {
			n++
		}
	}
	return n
}
