// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/flexsync/internal/models"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Limit      int
	Collection string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "Show recent sync runs from the ledger",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "only runs of this collection")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	if opts.Limit < 1 {
		return NewExitError(ExitCommandError, "--limit must be at least 1")
	}

	a, err := openApp(opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var runs []models.SyncRun
	if opts.Collection != "" {
		if _, ok := a.registry.Get(opts.Collection); !ok {
			return NewExitError(ExitCommandError, "unknown collection "+opts.Collection)
		}
		runs, err = a.ledger.History(ctx, opts.Collection, opts.Limit)
	} else {
		runs, err = a.ledger.Recent(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "read sync log", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, runs, nil)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No sync runs recorded.")
		return nil
	}

	tw := newTable(out)
	fmt.Fprintln(tw, "STARTED\tCOLLECTION\tMODE\tSTATUS\tDURATION\tFETCHED\tINSERTED\tUPDATED\tDETAILS\tERRORS\tMESSAGE")
	for i := range runs {
		r := &runs[i]
		duration := "-"
		if r.CompletedAt != nil {
			duration = r.Duration().Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.EntityType, r.Mode, r.Status, duration,
			r.Stats.Fetched, r.Stats.Inserted, r.Stats.Updated, r.Stats.DetailsFetched, r.Stats.Failed,
			r.ErrorMessage)
	}
	return tw.Flush()
}
