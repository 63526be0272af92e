// Drawbox
//
// A single shared drawing-guessing session between exactly two clients:
// one desktop client and one web (frontend) client. One player draws a
// secret word, the other guesses it over the same websocket endpoint.
//
// Features:
// - Single session, two role slots: /ws with role derived from handshake headers
// - Placeholder players seeded at startup so the session is live immediately
// - Real joiners silently replace the placeholder occupying their slot
// - Reconnection under the same name keeps the player's score
// - Drawer rotation with a random word on every correct guess
// - Stale connections and stale disconnected players reaped on a timer
// - Read-only JSON state at /api/v1/state
// - In-browser QR code to share the session URL, backed by go-qrcode

package main

import (
	"sort"
	"time"
)

// Role is one of the two slots a connecting client may occupy. At most
// one live connection per role at any time.
type Role string

const (
	RoleDesktop  Role = "desktop"
	RoleFrontend Role = "frontend"
)

// Player holds the data we store server-side. Placeholder players are
// seeded at startup and swapped out when a real client claims the slot.
type Player struct {
	Name        string
	Role        Role
	Score       int
	IsDrawer    bool
	IsConnected bool
	LastSeen    time.Time
	Placeholder bool
}

const (
	desktopPlaceholderName  = "Desktop Player"
	frontendPlaceholderName = "Web Player"
)

// Session is the canonical game state. It performs no I/O and carries
// no locking of its own; the coordinator serializes all access.
type Session struct {
	players       map[string]*Player
	currentWord   string // "" while no drawer is assigned
	currentDrawer string // "" while no drawer is assigned
	started       bool
	paused        bool
}

func newSession(now time.Time) *Session {
	s := &Session{
		players: make(map[string]*Player),
	}

	// Seed one connected placeholder per role so the session is active
	// for demonstration even with zero real participants. The desktop
	// placeholder is promoted to drawer by the coordinator right after
	// construction.
	for name, role := range map[string]Role{
		desktopPlaceholderName:  RoleDesktop,
		frontendPlaceholderName: RoleFrontend,
	} {
		s.players[name] = &Player{
			Name:        name,
			Role:        role,
			IsConnected: true,
			LastSeen:    now,
			Placeholder: true,
		}
	}

	s.started = true
	s.recomputePaused()

	return s
}

// connectedPlayers returns all connected players sorted by name, so
// random selection over the slice is stable for a given pick index.
func (s *Session) connectedPlayers() []*Player {
	players := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		if p.IsConnected {
			players = append(players, p)
		}
	}

	sort.Slice(players, func(i, j int) bool {
		return players[i].Name < players[j].Name
	})

	return players
}

// roleOccupied reports whether a connected player currently holds the
// given role slot.
func (s *Session) roleOccupied(role Role) bool {
	for _, p := range s.players {
		if p.IsConnected && p.Role == role {
			return true
		}
	}

	return false
}

// placeholderFor returns the placeholder player occupying a role slot,
// if any.
func (s *Session) placeholderFor(role Role) *Player {
	for _, p := range s.players {
		if p.Placeholder && p.Role == role {
			return p
		}
	}

	return nil
}

// recomputePaused derives the paused flag from role occupancy: the
// session pauses whenever fewer than two role slots are held by
// connected players.
func (s *Session) recomputePaused() {
	s.paused = !(s.roleOccupied(RoleDesktop) && s.roleOccupied(RoleFrontend))
}

// clearDrawer drops the current drawer assignment and the word with it.
func (s *Session) clearDrawer() {
	for _, p := range s.players {
		p.IsDrawer = false
	}
	s.currentDrawer = ""
	s.currentWord = ""
}

// drawerCount is used by the coordinator's consistency check.
func (s *Session) drawerCount() int {
	count := 0
	for _, p := range s.players {
		if p.IsDrawer {
			count++
		}
	}

	return count
}

// PlayerView is the public shape of a player inside a snapshot.
type PlayerView struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	IsDrawer    bool   `json:"is_drawer"`
	IsConnected bool   `json:"is_connected"`
	ClientType  Role   `json:"client_type"`
}

// Snapshot is an immutable point-in-time view of the session, safe to
// serialize and fan out after the coordinator's lock is released. The
// current word is only present while a drawer is assigned.
type Snapshot struct {
	Players       map[string]PlayerView `json:"players"`
	CurrentWord   *string               `json:"current_word"`
	Started       bool                  `json:"game_started"`
	Paused        bool                  `json:"game_paused"`
	CurrentDrawer *string               `json:"current_drawer"`
}

func (s *Session) snapshot() Snapshot {
	players := make(map[string]PlayerView, len(s.players))
	for name, p := range s.players {
		players[name] = PlayerView{
			Name:        p.Name,
			Score:       p.Score,
			IsDrawer:    p.IsDrawer,
			IsConnected: p.IsConnected,
			ClientType:  p.Role,
		}
	}

	snap := Snapshot{
		Players: players,
		Started: s.started,
		Paused:  s.paused,
	}

	if s.currentDrawer != "" {
		drawer := s.currentDrawer
		snap.CurrentDrawer = &drawer

		if s.currentWord != "" {
			word := s.currentWord
			snap.CurrentWord = &word
		}
	}

	return snap
}
