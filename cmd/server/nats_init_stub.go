// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !nats

package main

import (
	"context"

	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/relaymesh"
	"github.com/tomtom215/cartographus/internal/stats"
)

// RelayComponents is a stub for non-nats builds. The stub Publisher
// (relaymesh.NewPublisher) always fails, so InitRelayMesh never has a
// working Mirror to offer; callers must treat a nil RelayComponents (or
// a nil Mirror field) as "nothing to add to the supervisor tree".
type RelayComponents struct {
	Mirror *relaymesh.Mirror
}

// InitRelayMesh is a no-op stub for non-nats builds: it logs a warning
// if relay mirroring was requested and returns (nil, nil) either way.
func InitRelayMesh(cfg *config.Config, engine *stats.Engine) (*RelayComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("nats.enabled=true but relay mesh support not compiled (build with -tags nats)")
	}
	return nil, nil
}

// Shutdown is a no-op stub for non-nats builds.
func (rc *RelayComponents) Shutdown(_ context.Context) {}
