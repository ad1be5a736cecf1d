// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

/*
Package supervisor runs the long-lived parts of flexsync under a suture v4
supervisor tree.

The tree has two layers so that a crash in one cannot take the other down:

	RootSupervisor ("flexsync")
	├── SyncSupervisor ("sync-layer")
	│   └── SyncService (scheduler and manual triggers)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Supervisor events are
logged through sutureslog into the zerolog pipeline.

Typical wiring in the serve command:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	err = tree.Serve(ctx)

The service adapters live in the services subpackage.
*/
package supervisor
