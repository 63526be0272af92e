package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SweeperSuite struct {
	suite.Suite
	cfg   *Config
	co    *coordinator
	clock time.Time
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.cfg = &Config{
		pingTimeout:       30 * time.Second,
		sweepInterval:     10 * time.Second,
		disconnectTimeout: 30 * time.Second,
	}
	s.clock = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s.co = newCoordinator(s.cfg, []string{"casa"})
	s.co.now = func() time.Time { return s.clock }
	s.co.engine.pick = func(n int) int { return 0 }
}

func (s *SweeperSuite) advance(d time.Duration) {
	s.clock = s.clock.Add(d)
}

func (s *SweeperSuite) TestEvictsSilentConnections() {
	peer := &fakePeer{}
	s.Require().True(s.co.Connect(&conn{id: "d1", role: RoleDesktop, peer: peer}))
	s.Require().True(s.co.Join("d1", "alice"))

	s.advance(31 * time.Second)
	s.co.sweep()

	s.True(peer.isClosed())

	snap := s.co.Snapshot()
	s.Require().Contains(snap.Players, "alice")
	s.False(snap.Players["alice"].IsConnected)
	s.True(snap.Paused)
}

func (s *SweeperSuite) TestKeepsConnectionsThatPing() {
	peer := &fakePeer{}
	s.Require().True(s.co.Connect(&conn{id: "d1", role: RoleDesktop, peer: peer}))
	s.Require().True(s.co.Join("d1", "alice"))

	s.advance(20 * time.Second)
	s.co.Touch("d1")

	s.advance(20 * time.Second)
	s.co.sweep()

	s.False(peer.isClosed())
	s.True(s.co.Snapshot().Players["alice"].IsConnected)
}

func (s *SweeperSuite) TestPurgesLongDisconnectedPlayers() {
	peer := &fakePeer{}
	s.Require().True(s.co.Connect(&conn{id: "d1", role: RoleDesktop, peer: peer}))
	s.Require().True(s.co.Join("d1", "alice"))

	s.co.Disconnect("d1")

	// Not yet past the disconnect timeout: the player stays, so a
	// reconnect can still reclaim the score.
	s.advance(29 * time.Second)
	s.co.sweep()
	s.Contains(s.co.Snapshot().Players, "alice")

	s.advance(2 * time.Second)
	s.co.sweep()
	s.NotContains(s.co.Snapshot().Players, "alice")
}

func (s *SweeperSuite) TestEvictionCascadesIntoPurgeOnLaterCycle() {
	peer := &fakePeer{}
	s.Require().True(s.co.Connect(&conn{id: "d1", role: RoleDesktop, peer: peer}))
	s.Require().True(s.co.Join("d1", "alice"))

	// Connection goes silent; first sweep past the ping timeout evicts
	// it and flags the player.
	s.advance(31 * time.Second)
	s.co.sweep()
	s.False(s.co.Snapshot().Players["alice"].IsConnected)

	// A full disconnect timeout later the player record goes too.
	s.advance(31 * time.Second)
	s.co.sweep()
	s.NotContains(s.co.Snapshot().Players, "alice")

	// The seeded frontend placeholder is untouched throughout.
	s.Contains(s.co.Snapshot().Players, frontendPlaceholderName)
}

func (s *SweeperSuite) TestSweepSurvivesUncloseablePeer() {
	// A peer already closed underneath us must not stop the cycle from
	// evicting everything else.
	closedPeer := &fakePeer{closed: true}
	s.Require().True(s.co.Connect(&conn{id: "d1", role: RoleDesktop, peer: closedPeer}))

	otherPeer := &fakePeer{}
	s.Require().True(s.co.Connect(&conn{id: "f1", role: RoleFrontend, peer: otherPeer}))
	s.Require().True(s.co.Join("f1", "bob"))

	s.advance(31 * time.Second)
	s.co.sweep()

	s.True(otherPeer.isClosed())
	s.False(s.co.Snapshot().Players["bob"].IsConnected)
	s.False(s.co.registry.isLive("d1"))
	s.False(s.co.registry.isLive("f1"))
}

func (s *SweeperSuite) TestSweepRecomputesPausedFromOccupancy() {
	s.False(s.co.Snapshot().Paused)

	// Both placeholders stay, but one is marked gone out-of-band.
	s.co.MarkDisconnected(frontendPlaceholderName)

	s.co.sweep()
	s.True(s.co.Snapshot().Paused)
}
