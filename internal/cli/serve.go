// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/flexsync/internal/api"
	"github.com/tomtom215/flexsync/internal/logging"
	"github.com/tomtom215/flexsync/internal/supervisor"
	"github.com/tomtom215/flexsync/internal/supervisor/services"
	flexsync "github.com/tomtom215/flexsync/internal/sync"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	// Schedule overrides sync.schedule when set.
	Schedule string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled syncs and the status API",
		Long: `Run the sync scheduler and the HTTP status API under a supervisor tree
until SIGINT or SIGTERM. A sync in flight is canceled on shutdown and
closes its ledger row as partial.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "cron schedule with seconds, overrides sync.schedule")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	a, err := openApp(opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Schedule != "" {
		a.cfg.Sync.Schedule = opts.Schedule
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	remote := a.remote()
	if err := remote.Ping(ctx); err != nil {
		// The API may come back before the first scheduled run.
		logging.Warn().Err(err).Msg("Remote API is not reachable")
	}

	manager := flexsync.NewManager(a.orchestrator(remote, cmd.OutOrStdout()), &a.cfg.Sync)

	handler := api.NewHandler(a.db, a.ledger, manager, a.registry,
		api.WithSummaryCache(a.cfg.Server.SummaryCacheTTL))
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(&a.cfg.Server)))
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       a.cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      a.cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return WrapExitError(ExitFailure, "create supervisor tree", err)
	}
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().
		Str("addr", server.Addr).
		Str("schedule", a.cfg.Sync.Schedule).
		Msg("Starting supervisor tree...")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "supervisor tree", err)
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
	logging.Info().Msg("flexsync stopped")
	return nil
}
