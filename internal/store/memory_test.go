package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ResolveOrCreateUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	u1, err := st.ResolveOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, u1.ID)

	u2, err := st.ResolveOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)

	found, err := st.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u1, found)

	_, err = st.FindUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TeamMembership(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	alice, _ := st.ResolveOrCreateUser(ctx, "alice")
	bob, _ := st.ResolveOrCreateUser(ctx, "bob")

	team, err := st.CreateTeam(ctx, "Sprint 12", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, team.OwnerID)
	assert.Equal(t, []string{alice.ID}, team.MemberIDs, "owner is a member from the start")

	ok, err := st.IsMember(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.AddMember(ctx, team.ID, bob.ID))
	assert.ErrorIs(t, st.AddMember(ctx, team.ID, bob.ID), ErrAlreadyMember)

	ok, err = st.IsMember(ctx, team.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	fetched, err := st.FindTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID, bob.ID}, fetched.MemberIDs)

	require.NoError(t, st.RemoveMember(ctx, team.ID, bob.ID))
	assert.ErrorIs(t, st.RemoveMember(ctx, team.ID, bob.ID), ErrNotMember)
}

func TestMemoryStore_FindTeamNotFound(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.FindTeam(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TeamsByUser(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	alice, _ := st.ResolveOrCreateUser(ctx, "alice")
	bob, _ := st.ResolveOrCreateUser(ctx, "bob")

	t1, _ := st.CreateTeam(ctx, "Team One", alice.ID)
	t2, _ := st.CreateTeam(ctx, "Team Two", bob.ID)
	require.NoError(t, st.AddMember(ctx, t2.ID, alice.ID))

	teams, err := st.TeamsByUser(ctx, alice.ID)
	require.NoError(t, err)
	ids := []string{}
	for _, tm := range teams {
		ids = append(ids, tm.ID)
	}
	assert.ElementsMatch(t, []string{t1.ID, t2.ID}, ids)

	teams, err = st.TeamsByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, t2.ID, teams[0].ID)
}
