// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/flexsync/internal/mapping"
)

// collectionInfo is the JSON shape of one registered collection.
type collectionInfo struct {
	Name        string `json:"name"`
	Table       string `json:"table"`
	Source      string `json:"source"`
	Parent      string `json:"parent,omitempty"`
	TwoPhase    bool   `json:"two_phase"`
	Description string `json:"description"`
}

// NewCollectionsCommand creates the collections command. It needs neither
// the remote nor the database.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "collections",
		Short:         "List the collections flexsync can synchronize",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCollections(cmd, rootOpts, mapping.Default())
		},
	}
}

func listCollections(cmd *cobra.Command, opts *RootOptions, registry *mapping.Registry) error {
	all := registry.All()
	infos := make([]collectionInfo, 0, len(all))
	for _, c := range all {
		infos = append(infos, collectionInfo{
			Name:        c.Name,
			Table:       c.Table,
			Source:      c.Source.String(),
			Parent:      c.Parent,
			TwoPhase:    c.TwoPhase(),
			Description: c.Description,
		})
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, infos, nil)
	}

	tw := newTable(out)
	fmt.Fprintln(tw, "NAME\tSOURCE\tPARENT\tPHASES\tDESCRIPTION")
	for _, c := range infos {
		phases := "list"
		if c.TwoPhase {
			phases = "list+detail"
		}
		parent := c.Parent
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Source, parent, phases, c.Description)
	}
	return tw.Flush()
}
