package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SessionSuite struct {
	suite.Suite
	now     time.Time
	session *Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.session = newSession(s.now)
}

func (s *SessionSuite) TestSeededPlaceholders() {
	s.Len(s.session.players, 2)

	desktop := s.session.players[desktopPlaceholderName]
	s.Require().NotNil(desktop)
	s.True(desktop.Placeholder)
	s.True(desktop.IsConnected)
	s.Equal(RoleDesktop, desktop.Role)

	frontend := s.session.players[frontendPlaceholderName]
	s.Require().NotNil(frontend)
	s.True(frontend.Placeholder)
	s.Equal(RoleFrontend, frontend.Role)

	s.True(s.session.started)
	s.False(s.session.paused)
}

func (s *SessionSuite) TestRoleOccupancy() {
	s.True(s.session.roleOccupied(RoleDesktop))
	s.True(s.session.roleOccupied(RoleFrontend))

	s.session.players[frontendPlaceholderName].IsConnected = false
	s.False(s.session.roleOccupied(RoleFrontend))

	s.session.recomputePaused()
	s.True(s.session.paused)
}

func (s *SessionSuite) TestConnectedPlayersSorted() {
	s.session.players["alice"] = &Player{Name: "alice", Role: RoleDesktop, IsConnected: true}
	s.session.players["zoe"] = &Player{Name: "zoe", Role: RoleFrontend, IsConnected: false}

	players := s.session.connectedPlayers()
	s.Require().Len(players, 3)
	s.Equal("Desktop Player", players[0].Name)
	s.Equal("Web Player", players[1].Name)
	s.Equal("alice", players[2].Name)
}

func (s *SessionSuite) TestSnapshotHidesWordWithoutDrawer() {
	s.session.currentWord = ""
	s.session.currentDrawer = ""

	snap := s.session.snapshot()
	s.Nil(snap.CurrentWord)
	s.Nil(snap.CurrentDrawer)
}

func (s *SessionSuite) TestSnapshotShowsWordWithDrawer() {
	drawer := s.session.players[desktopPlaceholderName]
	drawer.IsDrawer = true
	s.session.currentDrawer = drawer.Name
	s.session.currentWord = "casa"

	snap := s.session.snapshot()
	s.Require().NotNil(snap.CurrentDrawer)
	s.Equal(desktopPlaceholderName, *snap.CurrentDrawer)
	s.Require().NotNil(snap.CurrentWord)
	s.Equal("casa", *snap.CurrentWord)
}

func (s *SessionSuite) TestSnapshotIsDetachedFromSession() {
	snap := s.session.snapshot()

	s.session.players[desktopPlaceholderName].Score = 99

	s.Equal(0, snap.Players[desktopPlaceholderName].Score)
}

func (s *SessionSuite) TestSnapshotWireFormat() {
	drawer := s.session.players[desktopPlaceholderName]
	drawer.IsDrawer = true
	s.session.currentDrawer = drawer.Name
	s.session.currentWord = "casa"

	data, err := json.Marshal(s.session.snapshot())
	s.Require().NoError(err)

	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(data, &decoded))

	s.Contains(decoded, "players")
	s.Contains(decoded, "current_word")
	s.Contains(decoded, "game_started")
	s.Contains(decoded, "game_paused")
	s.Contains(decoded, "current_drawer")

	players, ok := decoded["players"].(map[string]any)
	s.Require().True(ok)
	player, ok := players[desktopPlaceholderName].(map[string]any)
	s.Require().True(ok)
	s.Contains(player, "name")
	s.Contains(player, "score")
	s.Contains(player, "is_drawer")
	s.Contains(player, "is_connected")
	s.Contains(player, "client_type")
}

func (s *SessionSuite) TestClearDrawer() {
	drawer := s.session.players[desktopPlaceholderName]
	drawer.IsDrawer = true
	s.session.currentDrawer = drawer.Name
	s.session.currentWord = "casa"

	s.session.clearDrawer()

	s.Equal(0, s.session.drawerCount())
	s.Empty(s.session.currentDrawer)
	s.Empty(s.session.currentWord)
}
