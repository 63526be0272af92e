package main

import (
	"time"
)

// sender is the protocol handler's send primitive: a non-blocking
// delivery attempt plus a hard close for takeovers and evictions.
type sender interface {
	trySend(v any) bool
	forceClose()
}

// conn is a live transport-level connection. A conn is bound to at most
// one player (by name) once its owner has joined; a player is bound to
// at most one live conn.
type conn struct {
	id       string
	role     Role
	lastPing time.Time
	player   string // bound player name, "" until a join succeeds
	peer     sender
}

// registry owns the live connection handles and role slot occupancy at
// the transport level. It knows nothing about game rules and has no
// locking of its own; the coordinator serializes all access.
type registry struct {
	conns map[string]*conn
}

func newRegistry() *registry {
	return &registry{
		conns: make(map[string]*conn),
	}
}

// register accepts a connection unless its role slot is already held by
// another live connection.
func (r *registry) register(c *conn, now time.Time) bool {
	for _, existing := range r.conns {
		if existing.role == c.role {
			return false
		}
	}

	c.lastPing = now
	r.conns[c.id] = c

	return true
}

// bind associates a connection with the player it authenticated as,
// for broadcast routing and inbound message attribution.
func (r *registry) bind(id, player string) {
	if c, ok := r.conns[id]; ok {
		c.player = player
	}
}

// touch refreshes a connection's liveness timestamp.
func (r *registry) touch(id string, now time.Time) {
	if c, ok := r.conns[id]; ok {
		c.lastPing = now
	}
}

// unregister releases a connection and returns the player it was bound
// to, if any, so the caller can cascade into markDisconnected. Calling
// it again for the same id is a no-op.
func (r *registry) unregister(id string) (string, bool) {
	c, ok := r.conns[id]
	if !ok {
		return "", false
	}

	delete(r.conns, id)

	return c.player, true
}

func (r *registry) isLive(id string) bool {
	_, ok := r.conns[id]

	return ok
}

// byPlayer finds the live connection bound to a player name, if any.
func (r *registry) byPlayer(name string) *conn {
	for _, c := range r.conns {
		if c.player == name {
			return c
		}
	}

	return nil
}

// stale returns every connection whose last ping predates the cutoff.
func (r *registry) stale(cutoff time.Time) []*conn {
	var out []*conn
	for _, c := range r.conns {
		if c.lastPing.Before(cutoff) {
			out = append(out, c)
		}
	}

	return out
}
