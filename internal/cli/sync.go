// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomtom215/flexsync/internal/models"
	flexsync "github.com/tomtom215/flexsync/internal/sync"
)

// SyncOptions holds flags for the sync and sync-all commands.
type SyncOptions struct {
	*RootOptions
	Mode string
	// Quick is shorthand for --mode list-only.
	Quick bool
}

func (o *SyncOptions) mode() (models.SyncMode, error) {
	if o.Quick {
		return models.ModeListOnly, nil
	}
	mode, err := models.ParseSyncMode(o.Mode)
	if err != nil {
		return "", NewExitError(ExitCommandError, err.Error())
	}
	return mode, nil
}

func addSyncFlags(cmd *cobra.Command, opts *SyncOptions) {
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", string(models.ModeFull), "sync mode (full|list-only|details-only)")
	cmd.Flags().BoolVarP(&opts.Quick, "quick", "q", false, "list phase only, same as --mode list-only")
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <collection>",
		Short: "Synchronize one collection",
		Long: `Synchronize one collection from the remote API.

The list phase enumerates every page and upserts the records. The detail
phase then fetches each record that has no detail yet. A run stopped by
throttling ends as partial and the next run resumes the detail backlog.

Exit codes:
  0 - success or partial
  1 - the run failed
  2 - bad arguments or configuration`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, args[0])
		},
	}
	addSyncFlags(cmd, opts)

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions, collection string) error {
	mode, err := opts.mode()
	if err != nil {
		return err
	}

	a, err := openApp(opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.registry.Get(collection); !ok {
		return NewExitError(ExitCommandError, "unknown collection "+collection+" (see 'flexsync collections')")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	report, runErr := a.orchestrator(a.remote(), progressWriter(opts.RootOptions, out)).Run(ctx, collection, mode)
	if opts.Format == "json" {
		if err := writeJSON(out, report, runErr); err != nil {
			return err
		}
	}
	return syncError(runErr)
}

// progressWriter keeps stdout clean for the JSON envelope.
func progressWriter(opts *RootOptions, out io.Writer) io.Writer {
	if opts.Format == "json" {
		return nil
	}
	return out
}

// syncError maps a run error to an exit code.
func syncError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, flexsync.ErrUnknownCollection) {
		return WrapExitError(ExitCommandError, "sync", err)
	}
	return WrapExitError(ExitFailure, "sync failed", err)
}
