package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/team-space/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryRepo() (TeamRepository, *time.Time) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewMemoryTeamRepository(func() time.Time { return now }), &now
}

func TestMemoryTeamRepository_CreateAndGet(t *testing.T) {
	repo, now := newMemoryRepo()
	ctx := context.Background()

	team := models.NewTeam("Platform", nil, "u1", *now)
	require.NoError(t, repo.Create(ctx, team))
	assert.NotEmpty(t, team.ID)
	assert.Equal(t, int64(1), team.Version)

	got, err := repo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)
	assert.Equal(t, []string{"u1"}, got.Admins)

	// Изменения копии не должны попадать в хранилище.
	got.Admins[0] = "intruder"
	again, err := repo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, again.Admins)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestMemoryTeamRepository_UpdateChecksVersion(t *testing.T) {
	repo, now := newMemoryRepo()
	ctx := context.Background()

	team := models.NewTeam("Platform", nil, "u1", *now)
	require.NoError(t, repo.Create(ctx, team))

	first, err := repo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, team.ID)
	require.NoError(t, err)

	_, err = first.AddMember(models.TeamMember{ID: "m1", UserID: "u2"}, *now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	_, err = second.AddMember(models.TeamMember{ID: "m2", UserID: "u3"}, *now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, second), ErrTeamVersionConflict)

	stored, err := repo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, stored.Members, 1)
	assert.Equal(t, "u2", stored.Members[0].UserID)

	stored.ID = "missing"
	assert.ErrorIs(t, repo.Update(ctx, stored), ErrTeamNotFound)
}

func TestMemoryTeamRepository_InviteTokenLookupAndUniqueness(t *testing.T) {
	repo, now := newMemoryRepo()
	ctx := context.Background()

	a := models.NewTeam("A", nil, "u1", *now)
	b := models.NewTeam("B", nil, "u1", *now)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	require.NoError(t, a.SetInviteToken("shared", now.Add(time.Hour), *now))
	require.NoError(t, repo.Update(ctx, a))

	found, err := repo.GetByInviteToken(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	require.NoError(t, b.SetInviteToken("shared", now.Add(time.Hour), *now))
	assert.ErrorIs(t, repo.Update(ctx, b), ErrInviteTokenConflict)

	_, err = repo.GetByInviteToken(ctx, "unknown")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestMemoryTeamRepository_GetByUserID(t *testing.T) {
	repo, now := newMemoryRepo()
	ctx := context.Background()

	owned := models.NewTeam("Owned", nil, "u1", *now)
	require.NoError(t, repo.Create(ctx, owned))

	joined := models.NewTeam("Joined", nil, "u9", *now)
	_, err := joined.AddMember(models.TeamMember{ID: "m1", UserID: "u1"}, *now)
	require.NoError(t, err)
	_, err = joined.ApproveMember("m1", "u9", *now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, joined))

	pending := models.NewTeam("Pending", nil, "u9", *now)
	_, err = pending.AddMember(models.TeamMember{ID: "m2", UserID: "u1"}, *now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, pending))

	teams, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	names := make([]string, 0, len(teams))
	for _, team := range teams {
		names = append(names, team.Name)
	}
	assert.ElementsMatch(t, []string{"Owned", "Joined"}, names)

	none, err := repo.GetByUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryTeamRepository_DuplicateMember(t *testing.T) {
	repo, now := newMemoryRepo()
	team := models.NewTeam("Platform", nil, "u1", *now)
	team.Members = append(team.Members,
		models.TeamMember{ID: "m1", UserID: "u2"},
		models.TeamMember{ID: "m2", UserID: "u2"},
	)
	assert.ErrorIs(t, repo.Create(context.Background(), team), ErrMemberConflict)
}

func TestMemoryTeamRepository_Delete(t *testing.T) {
	repo, now := newMemoryRepo()
	ctx := context.Background()

	team := models.NewTeam("Platform", nil, "u1", *now)
	require.NoError(t, repo.Create(ctx, team))

	require.NoError(t, repo.Delete(ctx, team.ID))
	assert.ErrorIs(t, repo.Delete(ctx, team.ID), ErrTeamNotFound)
	_, err := repo.GetByID(ctx, team.ID)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}
