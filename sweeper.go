package main

import (
	"context"
	"time"
)

// runSweeper periodically evicts connections that have stopped pinging
// and purges players that never came back. It exits when the server
// context is cancelled.
func runSweeper(ctx context.Context, cfg *Config, co *coordinator) {
	ticker := time.NewTicker(cfg.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			co.sweep()
		case <-ctx.Done():
			return
		}
	}
}

// sweep runs one cycle: stale connections are unregistered (cascading
// into disconnect handling for bound players), long-disconnected
// players are removed for good, and the paused flag is recomputed.
// Socket closes happen after the lock is released; a close failing for
// one peer never aborts the rest of the cycle.
func (co *coordinator) sweep() {
	now := co.now()

	co.mu.Lock()

	changed := false
	var evicted []sender

	for _, c := range co.registry.stale(now.Add(-co.cfg.pingTimeout)) {
		player, ok := co.registry.unregister(c.id)
		if !ok {
			continue
		}

		logf(co.cfg, "SWEEP: Evicted connection %s, last ping %s ago",
			c.id,
			now.Sub(c.lastPing).Round(time.Second),
		)

		evicted = append(evicted, c.peer)

		if player != "" {
			co.markDisconnectedLocked(player)
		}

		changed = true
	}

	for name, player := range co.session.players {
		if player.IsConnected || now.Sub(player.LastSeen) <= co.cfg.disconnectTimeout {
			continue
		}

		delete(co.session.players, name)
		logf(co.cfg, "SWEEP: Removed player %q after disconnect timeout", name)
		changed = true
	}

	co.session.recomputePaused()
	co.checkConsistencyLocked()

	snap := co.session.snapshot()
	recipients := co.recipientsLocked()
	co.mu.Unlock()

	for _, peer := range evicted {
		peer.forceClose()
	}

	if changed {
		co.fanOutState(recipients, snap)
	}
}
