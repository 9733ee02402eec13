package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContext_BindAndBound(t *testing.T) {
	s := NewSessionContext("conn-1")

	_, _, bound := s.Bound()
	assert.False(t, bound)

	s.Bind("r1", "u1", RoleViewer)

	roomID, userID, bound := s.Bound()
	require.True(t, bound)
	assert.Equal(t, RoomID("r1"), roomID)
	assert.Equal(t, UserID("u1"), userID)
	assert.Equal(t, RoleViewer, s.Role())
}

func TestSessionContext_Producers(t *testing.T) {
	s := NewSessionContext("conn-1")
	s.Bind("r1", "u1", RoleBroadcaster)

	assert.Empty(t, s.Producers())

	s.AddProducer("p1")
	s.AddProducer("p2")
	s.AddProducer("p1")

	assert.ElementsMatch(t, []ProducerID{"p1", "p2"}, s.Producers())
}

func TestSessionContext_Clear(t *testing.T) {
	s := NewSessionContext("conn-1")
	s.Bind("r1", "u1", RoleBroadcaster)
	s.AddProducer("p1")

	s.Clear()

	_, _, bound := s.Bound()
	assert.False(t, bound)
	assert.Empty(t, s.Producers())

	// The session can be reused for another room.
	s.Bind("r2", "u1", RoleViewer)
	_, _, bound = s.Bound()
	assert.True(t, bound)
}

func TestRoleFromValue(t *testing.T) {
	role, err := RoleFromValue("BROADCASTER")
	require.NoError(t, err)
	assert.Equal(t, RoleBroadcaster, role)

	role, err = RoleFromValue("VIEWER")
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, role)

	_, err = RoleFromValue("broadcaster")
	assert.Error(t, err)
	_, err = RoleFromValue("")
	assert.Error(t, err)
}
