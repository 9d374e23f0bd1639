package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTeam() *Team {
	return NewTeam("Blue", nil, "u1", baseTime)
}

func TestNewTeam_CreatorIsOnlyAdmin(t *testing.T) {
	team := newTestTeam()

	assert.Equal(t, []string{"u1"}, team.Admins)
	assert.Empty(t, team.Members)
	assert.True(t, team.IsActive)
	assert.True(t, team.IsAdmin("u1"))
	assert.False(t, team.IsAdmin("u2"))
	assert.Equal(t, baseTime, team.CreatedAt)
	assert.Equal(t, baseTime, team.UpdatedAt)
}

func TestIsTokenValid(t *testing.T) {
	team := newTestTeam()
	assert.False(t, team.IsTokenValid(baseTime), "no token issued yet")

	require.NoError(t, team.SetInviteToken("tok", baseTime.Add(time.Hour), baseTime))
	assert.True(t, team.IsTokenValid(baseTime))
	assert.True(t, team.IsTokenValid(baseTime.Add(59*time.Minute)))
	assert.False(t, team.IsTokenValid(baseTime.Add(time.Hour)), "expiry instant is no longer valid")
	assert.False(t, team.IsTokenValid(baseTime.Add(2*time.Hour)))

	token := "forever"
	team.InviteToken = &token
	team.InviteTokenExpiry = nil
	assert.True(t, team.IsTokenValid(baseTime.Add(1000*time.Hour)), "token without expiry never expires")
}

func TestSetInviteToken_ReplacesPrevious(t *testing.T) {
	team := newTestTeam()
	later := baseTime.Add(time.Minute)

	require.NoError(t, team.SetInviteToken("first", baseTime.Add(time.Hour), baseTime))
	require.NoError(t, team.SetInviteToken("second", baseTime.Add(2*time.Hour), later))

	require.NotNil(t, team.InviteToken)
	assert.Equal(t, "second", *team.InviteToken)
	assert.Equal(t, baseTime.Add(2*time.Hour), *team.InviteTokenExpiry)
	assert.Equal(t, later, team.UpdatedAt)

	assert.ErrorIs(t, team.SetInviteToken("", baseTime, later), ErrEmptyInviteToken)
}

func TestAddMember(t *testing.T) {
	team := newTestTeam()
	joinedAt := baseTime.Add(time.Minute)

	m, err := team.AddMember(TeamMember{ID: "m1", UserID: "u2", Nickname: "bob", Status: MemberStatusActive}, joinedAt)
	require.NoError(t, err)

	assert.Equal(t, MemberStatusPending, m.Status, "join always starts pending")
	assert.Equal(t, DefaultMemberRole, m.Role)
	assert.Equal(t, joinedAt, m.JoinedAt)
	assert.Equal(t, joinedAt, team.UpdatedAt)
	assert.True(t, team.HasMember("u2"))
	assert.True(t, team.IsPendingMember("u2"))
	assert.False(t, team.IsActiveMember("u2"))

	_, err = team.AddMember(TeamMember{ID: "m2", UserID: "u2"}, joinedAt)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.Len(t, team.Members, 1)
}

func TestApproveMember(t *testing.T) {
	team := newTestTeam()
	_, err := team.AddMember(TeamMember{ID: "m1", UserID: "u2"}, baseTime)
	require.NoError(t, err)

	approvedAt := baseTime.Add(time.Hour)
	m, err := team.ApproveMember("m1", "u1", approvedAt)
	require.NoError(t, err)

	assert.Equal(t, MemberStatusActive, m.Status)
	require.NotNil(t, m.ApprovedBy)
	assert.Equal(t, "u1", *m.ApprovedBy)
	require.NotNil(t, m.ApprovedAt)
	assert.Equal(t, approvedAt, *m.ApprovedAt)
	assert.True(t, team.IsActiveMember("u2"))

	_, err = team.ApproveMember("m1", "u1", approvedAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrMemberNotPending)
	stored, ok := team.FindMember("m1")
	require.True(t, ok)
	assert.Equal(t, approvedAt, *stored.ApprovedAt, "second approval must not move approved_at")

	_, err = team.ApproveMember("missing", "u1", approvedAt)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestRejectMember(t *testing.T) {
	team := newTestTeam()
	_, err := team.AddMember(TeamMember{ID: "m1", UserID: "u2"}, baseTime)
	require.NoError(t, err)

	m, err := team.RejectMember("m1", baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, MemberStatusInactive, m.Status)
	assert.Nil(t, m.ApprovedBy)
	assert.Nil(t, m.ApprovedAt)

	_, err = team.ApproveMember("m1", "u1", baseTime)
	assert.ErrorIs(t, err, ErrMemberNotPending, "inactive is terminal")

	_, err = team.AddMember(TeamMember{ID: "m2", UserID: "u2"}, baseTime)
	assert.ErrorIs(t, err, ErrAlreadyMember, "rejected user cannot rejoin")
	assert.False(t, team.CanView("u2"))
}

func TestMemberViews_PreserveOrder(t *testing.T) {
	team := newTestTeam()
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := team.AddMember(TeamMember{ID: "m-" + id, UserID: id}, baseTime)
		require.NoError(t, err)
	}
	_, err := team.ApproveMember("m-b", "u1", baseTime)
	require.NoError(t, err)
	_, err = team.ApproveMember("m-d", "u1", baseTime)
	require.NoError(t, err)
	_, err = team.RejectMember("m-c", baseTime)
	require.NoError(t, err)

	pending := team.PendingMembers()
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].UserID)

	active := team.ActiveMembers()
	require.Len(t, active, 2)
	assert.Equal(t, "b", active[0].UserID)
	assert.Equal(t, "d", active[1].UserID)
}

func TestFindMember_ReturnsCopy(t *testing.T) {
	team := newTestTeam()
	_, err := team.AddMember(TeamMember{ID: "m1", UserID: "u2"}, baseTime)
	require.NoError(t, err)

	m, ok := team.FindMember("m1")
	require.True(t, ok)
	m.Status = MemberStatusActive

	stored, _ := team.FindMember("m1")
	assert.Equal(t, MemberStatusPending, stored.Status)

	_, ok = team.FindMember("nope")
	assert.False(t, ok)
}

func TestCanView(t *testing.T) {
	team := newTestTeam()
	_, err := team.AddMember(TeamMember{ID: "m1", UserID: "u2"}, baseTime)
	require.NoError(t, err)

	assert.True(t, team.CanView("u1"))
	assert.True(t, team.CanView("u2"))
	assert.False(t, team.CanView("stranger"))
}

func TestMembersVisibleTo(t *testing.T) {
	team := newTestTeam()
	for _, m := range []TeamMember{{ID: "m1", UserID: "u2"}, {ID: "m2", UserID: "u3"}, {ID: "m3", UserID: "u4"}} {
		_, err := team.AddMember(m, baseTime)
		require.NoError(t, err)
	}
	_, err := team.ApproveMember("m1", "u1", baseTime)
	require.NoError(t, err)
	_, err = team.RejectMember("m3", baseTime)
	require.NoError(t, err)

	ids := func(members []TeamMember) []string {
		result := make([]string, 0, len(members))
		for _, m := range members {
			result = append(result, m.ID)
		}
		return result
	}

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(team.MembersVisibleTo("u1")))
	assert.Equal(t, []string{"m1"}, ids(team.MembersVisibleTo("u2")))
	assert.Equal(t, []string{"m1", "m2"}, ids(team.MembersVisibleTo("u3")))
	assert.Equal(t, []string{"m1", "m3"}, ids(team.MembersVisibleTo("u4")))
	assert.Len(t, team.Members, 3, "the aggregate itself is untouched")
}
