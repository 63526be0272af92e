package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RegistrySuite struct {
	suite.Suite
	now      time.Time
	registry *registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.registry = newRegistry()
}

func (s *RegistrySuite) TestRegisterRecordsLiveness() {
	c := &conn{id: "c1", role: RoleDesktop, peer: &fakePeer{}}

	s.True(s.registry.register(c, s.now))
	s.True(s.registry.isLive("c1"))
	s.Equal(s.now, c.lastPing)
}

func (s *RegistrySuite) TestRegisterRejectsOccupiedRole() {
	s.True(s.registry.register(&conn{id: "c1", role: RoleDesktop, peer: &fakePeer{}}, s.now))
	s.False(s.registry.register(&conn{id: "c2", role: RoleDesktop, peer: &fakePeer{}}, s.now))

	// The other slot is still free.
	s.True(s.registry.register(&conn{id: "c3", role: RoleFrontend, peer: &fakePeer{}}, s.now))
}

func (s *RegistrySuite) TestRoleSlotFreedOnUnregister() {
	s.True(s.registry.register(&conn{id: "c1", role: RoleDesktop, peer: &fakePeer{}}, s.now))

	s.registry.unregister("c1")

	s.True(s.registry.register(&conn{id: "c2", role: RoleDesktop, peer: &fakePeer{}}, s.now))
}

func (s *RegistrySuite) TestBindAndByPlayer() {
	s.True(s.registry.register(&conn{id: "c1", role: RoleDesktop, peer: &fakePeer{}}, s.now))

	s.registry.bind("c1", "alice")

	found := s.registry.byPlayer("alice")
	s.Require().NotNil(found)
	s.Equal("c1", found.id)

	s.Nil(s.registry.byPlayer("bob"))
}

func (s *RegistrySuite) TestUnregisterReturnsBoundPlayer() {
	s.True(s.registry.register(&conn{id: "c1", role: RoleDesktop, peer: &fakePeer{}}, s.now))
	s.registry.bind("c1", "alice")

	player, ok := s.registry.unregister("c1")
	s.True(ok)
	s.Equal("alice", player)
	s.False(s.registry.isLive("c1"))

	// Second unregister is a no-op.
	_, ok = s.registry.unregister("c1")
	s.False(ok)
}

func (s *RegistrySuite) TestTouchAndStale() {
	c1 := &conn{id: "c1", role: RoleDesktop, peer: &fakePeer{}}
	c2 := &conn{id: "c2", role: RoleFrontend, peer: &fakePeer{}}
	s.True(s.registry.register(c1, s.now))
	s.True(s.registry.register(c2, s.now))

	later := s.now.Add(31 * time.Second)
	s.registry.touch("c2", later)

	stale := s.registry.stale(later.Add(-30 * time.Second))
	s.Require().Len(stale, 1)
	s.Equal("c1", stale[0].id)
}
