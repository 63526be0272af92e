package main

import (
	"log"
	"sync"
	"time"
)

// coordinator serializes every mutating operation on the session and
// the registry behind one mutex. Mutations run under the lock; the
// resulting snapshot is copied out and fanned out to peers only after
// the lock is released, so a slow or dead peer never blocks the next
// mutation.
type coordinator struct {
	mu       sync.Mutex
	cfg      *Config
	session  *Session
	registry *registry
	engine   *engine
	now      func() time.Time
}

// recipient is a send target captured under the lock for a fan-out.
type recipient struct {
	connID string
	player string
	peer   sender
}

func newCoordinator(cfg *Config, words []string) *coordinator {
	co := &coordinator{
		cfg:      cfg,
		registry: newRegistry(),
		engine:   newEngine(words),
		now:      time.Now,
	}
	co.session = newSession(co.now())

	// The desktop placeholder opens as drawer so the seeded session is
	// immediately playable.
	co.engine.assignDrawer(co.session, co.session.players[desktopPlaceholderName])

	return co
}

// Connect admits a new connection unless its role slot is already held
// by another live connection.
func (co *coordinator) Connect(c *conn) bool {
	co.mu.Lock()
	defer co.mu.Unlock()

	return co.registry.register(c, co.now())
}

// Touch refreshes a connection's liveness timestamp.
func (co *coordinator) Touch(id string) {
	co.mu.Lock()
	defer co.mu.Unlock()

	co.registry.touch(id, co.now())
}

// Join admits a player on an already-registered connection. A
// placeholder holding the slot is swapped out (handing over drawer
// duty), a disconnected player of the same name is reactivated with
// its score intact, and a brand-new name creates a player. Joining
// under a name that is still connected elsewhere is rejected; a
// connection switching to a new name releases its old one first.
func (co *coordinator) Join(connID, name string) bool {
	co.mu.Lock()

	c, ok := co.registry.conns[connID]
	if !ok {
		co.mu.Unlock()

		return false
	}
	role := c.role
	now := co.now()

	if existing, ok := co.session.players[name]; ok && existing.IsConnected && !existing.Placeholder {
		co.mu.Unlock()
		logf(co.cfg, "GAME: Rejected join for %q: name already connected", name)

		return false
	}

	// A connection rejoining under a new name gives up its previous
	// identity first, so the old player never lingers as connected
	// without a live connection behind it.
	if c.player != "" && c.player != name {
		co.markDisconnectedLocked(c.player)
	}

	// Swap out the placeholder occupying this slot, remembering whether
	// it was holding the pen.
	transferDrawer := false
	if placeholder := co.session.placeholderFor(role); placeholder != nil {
		transferDrawer = placeholder.IsDrawer
		delete(co.session.players, placeholder.Name)
		if transferDrawer {
			placeholder.IsDrawer = false
		}
		logf(co.cfg, "GAME: Placeholder %q replaced by %q", placeholder.Name, name)
	}

	player, ok := co.session.players[name]
	if ok {
		player.IsConnected = true
		player.LastSeen = now
		player.Role = role
		player.Placeholder = false
		logf(co.cfg, "GAME: Player %q reconnected as %s", name, role)
	} else {
		player = &Player{
			Name:        name,
			Role:        role,
			IsConnected: true,
			LastSeen:    now,
		}
		co.session.players[name] = player
		logf(co.cfg, "GAME: Player %q joined as %s", name, role)
	}

	if transferDrawer {
		player.IsDrawer = true
		co.session.currentDrawer = name
	}

	co.registry.bind(connID, name)
	co.session.recomputePaused()

	// Once both slots are filled and nobody holds the pen, deal one.
	if co.session.currentDrawer == "" &&
		co.session.roleOccupied(RoleDesktop) && co.session.roleOccupied(RoleFrontend) {
		co.engine.selectDrawer(co.session)
	}

	co.checkConsistencyLocked()
	snap := co.session.snapshot()
	recipients := co.recipientsLocked()
	co.mu.Unlock()

	co.fanOutState(recipients, snap)

	return true
}

// Guess evaluates a guess from the named player and reports whether it
// matched. On a match the peers are told who guessed which word before
// the refreshed state goes out.
func (co *coordinator) Guess(name, text string) bool {
	co.mu.Lock()

	word := co.session.currentWord
	ok := co.engine.evaluateGuess(co.session, name, text)
	co.checkConsistencyLocked()

	if !ok {
		co.mu.Unlock()

		return false
	}

	logf(co.cfg, "GAME: %q guessed %q", name, word)

	snap := co.session.snapshot()
	recipients := co.recipientsLocked()
	co.mu.Unlock()

	co.fanOut(recipients, correctMessage{
		Type:   "correct",
		Player: name,
		Word:   word,
	})
	co.fanOutState(recipients, snap)

	return true
}

// Relay fans a message out verbatim to every connected peer except the
// sender, without touching session state. Used for drawing traffic;
// the drawer renders its own strokes locally and needs no echo.
func (co *coordinator) Relay(senderID string, msg any) {
	co.mu.Lock()
	recipients := co.recipientsLocked()
	co.mu.Unlock()

	filtered := recipients[:0]
	for _, r := range recipients {
		if r.connID != senderID {
			filtered = append(filtered, r)
		}
	}

	co.fanOut(filtered, msg)
}

// Disconnect releases a connection and marks its bound player, if any,
// as disconnected. It is safe to call more than once per connection;
// only the first call has any effect.
func (co *coordinator) Disconnect(id string) {
	co.mu.Lock()

	player, ok := co.registry.unregister(id)
	if !ok {
		co.mu.Unlock()

		return
	}

	if player != "" {
		co.markDisconnectedLocked(player)
	}

	co.checkConsistencyLocked()
	snap := co.session.snapshot()
	recipients := co.recipientsLocked()
	co.mu.Unlock()

	co.fanOutState(recipients, snap)
}

// MarkDisconnected flags a player as gone without touching any
// connection, e.g. for a placeholder that never had one.
func (co *coordinator) MarkDisconnected(name string) {
	co.mu.Lock()

	co.markDisconnectedLocked(name)
	co.checkConsistencyLocked()

	snap := co.session.snapshot()
	recipients := co.recipientsLocked()
	co.mu.Unlock()

	co.fanOutState(recipients, snap)
}

// ReleaseName force-releases whichever live connection other than
// exceptID is currently bound to name, returning its peer so the
// caller can close the socket. Used when a client rejoins under a name
// whose previous connection never went away cleanly.
func (co *coordinator) ReleaseName(name, exceptID string) sender {
	co.mu.Lock()

	c := co.registry.byPlayer(name)
	if c == nil || c.id == exceptID {
		co.mu.Unlock()

		return nil
	}

	logf(co.cfg, "GAME: Closing stale connection %s for %q", c.id, name)

	co.registry.unregister(c.id)
	co.markDisconnectedLocked(name)
	co.checkConsistencyLocked()
	co.mu.Unlock()

	return c.peer
}

// IsDrawer reports whether the player bound to a connection currently
// holds the pen.
func (co *coordinator) IsDrawer(connID string) bool {
	co.mu.Lock()
	defer co.mu.Unlock()

	c, ok := co.registry.conns[connID]

	return ok && c.player != "" && c.player == co.session.currentDrawer
}

// PlayerFor returns the player name bound to a connection, if any.
func (co *coordinator) PlayerFor(connID string) string {
	co.mu.Lock()
	defer co.mu.Unlock()

	if c, ok := co.registry.conns[connID]; ok {
		return c.player
	}

	return ""
}

// Snapshot returns the current state. Reads still take the lock so a
// snapshot never observes a half-applied mutation.
func (co *coordinator) Snapshot() Snapshot {
	co.mu.Lock()
	defer co.mu.Unlock()

	return co.session.snapshot()
}

// markDisconnectedLocked flags a player as gone, hands the pen to a
// remaining connected player if the drawer left, and recomputes the
// paused flag. Assumes co.mu is held.
func (co *coordinator) markDisconnectedLocked(name string) {
	player, ok := co.session.players[name]
	if !ok {
		return
	}

	player.IsConnected = false
	player.LastSeen = co.now()
	logf(co.cfg, "GAME: Player %q disconnected", name)

	if co.session.currentDrawer == name {
		co.session.clearDrawer()
		if len(co.session.connectedPlayers()) > 0 {
			co.engine.selectDrawer(co.session)
		}
	}

	co.session.recomputePaused()
}

// recipientsLocked copies the current send targets. Assumes co.mu is
// held.
func (co *coordinator) recipientsLocked() []recipient {
	out := make([]recipient, 0, len(co.registry.conns))
	for _, c := range co.registry.conns {
		out = append(out, recipient{
			connID: c.id,
			player: c.player,
			peer:   c.peer,
		})
	}

	return out
}

// fanOut delivers one message to every recipient. A peer that cannot
// accept the message is treated as disconnected and torn down through
// the usual path.
func (co *coordinator) fanOut(recipients []recipient, msg any) {
	var failed []recipient

	for _, r := range recipients {
		if !r.peer.trySend(msg) {
			failed = append(failed, r)
		}
	}

	for _, r := range failed {
		r.peer.forceClose()
		co.Disconnect(r.connID)
	}
}

// fanOutState delivers the snapshot to every recipient, decorating it
// with a personalized turn prompt for bound players.
func (co *coordinator) fanOutState(recipients []recipient, snap Snapshot) {
	var failed []recipient

	for _, r := range recipients {
		msg := stateMessage{
			Type:  "state",
			State: snap,
		}

		if r.player != "" {
			if pv, ok := snap.Players[r.player]; ok && pv.IsConnected {
				switch {
				case pv.IsDrawer && snap.CurrentWord != nil:
					msg.StatusMessage = "Your turn to draw: " + *snap.CurrentWord
				case !pv.IsDrawer:
					msg.StatusMessage = "Your turn to guess"
				}
			}
		}

		if !r.peer.trySend(msg) {
			failed = append(failed, r)
		}
	}

	for _, r := range failed {
		r.peer.forceClose()
		co.Disconnect(r.connID)
	}
}

// checkConsistencyLocked verifies the drawer invariants after a
// mutation. Violations indicate a coordinator bug, so they are logged
// unconditionally rather than silently tolerated. Assumes co.mu is
// held.
func (co *coordinator) checkConsistencyLocked() {
	s := co.session

	switch {
	case s.drawerCount() > 1:
		log.Printf("ERROR: session has %d drawers", s.drawerCount())
	case (s.drawerCount() == 1) != (s.currentDrawer != ""):
		log.Printf("ERROR: drawer flag out of sync with current drawer %q", s.currentDrawer)
	case s.currentWord != "" && s.currentDrawer == "":
		log.Printf("ERROR: word %q assigned with no drawer", s.currentWord)
	}

	for _, role := range []Role{RoleDesktop, RoleFrontend} {
		count := 0
		for _, p := range s.players {
			if p.IsConnected && p.Role == role {
				count++
			}
		}
		if count > 1 {
			log.Printf("ERROR: %d connected players hold the %s slot", count, role)
		}
	}
}
