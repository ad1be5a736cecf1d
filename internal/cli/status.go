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

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [collection...]",
		Short: "Summarize the local copy of each collection",
		Long: `Print, per collection, the local row count, the records still waiting
for their detail fetch, the records deleted remotely and the last
successful run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, rootOpts, args)
		},
	}
}

func runStatus(cmd *cobra.Command, opts *RootOptions, names []string) error {
	a, err := openApp(opts, false)
	if err != nil {
		return err
	}
	defer a.Close()

	colls, err := a.registry.Ordered(names)
	if err != nil {
		return WrapExitError(ExitCommandError, "status", err)
	}

	ctx := cmd.Context()
	last, err := a.ledger.LastSuccessful(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "read sync log", err)
	}

	summaries := make([]*models.CollectionSummary, 0, len(colls))
	for _, c := range colls {
		s, err := a.db.CollectionSummary(ctx, c.Name)
		if err != nil {
			return WrapExitError(ExitFailure, "summarize "+c.Name, err)
		}
		if run, ok := last[c.Name]; ok {
			s.LastSuccess = &run
		}
		summaries = append(summaries, s)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, summaries, nil)
	}

	tw := newTable(out)
	fmt.Fprintln(tw, "COLLECTION\tROWS\tDETAIL PENDING\tREMOTE DELETED\tLAST SUCCESS")
	for _, s := range summaries {
		lastSuccess := "never"
		if s.LastSuccess != nil && s.LastSuccess.CompletedAt != nil {
			lastSuccess = s.LastSuccess.CompletedAt.Local().Format(time.DateTime)
		}
		pending := "-"
		if s.TwoPhase {
			pending = fmt.Sprint(s.DetailPending)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", s.Collection, s.Total, pending, s.RemoteDeleted, lastSuccess)
	}
	return tw.Flush()
}
