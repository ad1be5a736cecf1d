// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

/*
Package main is the entry point for the flexsync command.

flexsync replicates the collections of a rate-limited, paginated rental
inventory REST API into a local DuckDB or SQLite database.

# Commands

	flexsync sync <collection> [--mode full|list-only|details-only] [--quick]
	flexsync sync-all [collection...]
	flexsync runs [--limit N] [--collection NAME]
	flexsync status [collection...]
	flexsync collections
	flexsync serve [--schedule CRON]

# Process Architecture

In serve mode the process runs a Suture v4 supervisor tree:

	RootSupervisor ("flexsync")
	├── SyncSupervisor ("sync-layer")
	│   └── Sync Manager (cron schedule, single-flight)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (status API, /metrics)

# Configuration

Configuration is loaded via Koanf v2 (highest priority wins):
  - Environment variables (FLEX_BASE_URL, FLEX_API_KEY, DB_PATH, ...)
  - Config file (--config, CONFIG_PATH or config.yaml)
  - Built-in defaults

# Signal Handling

SIGINT and SIGTERM cancel the run in flight. The run closes its ledger row
as partial and the detail backlog resumes on the next invocation.
*/
package main

import (
	"fmt"
	"os"

	"github.com/tomtom215/flexsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
