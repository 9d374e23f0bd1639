package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/team-space/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teamRowColumns   = []string{"id", "name", "description", "admins", "invite_token", "invite_token_expiry", "is_active", "logo_key", "version", "created_at", "updated_at"}
	memberRowColumns = []string{"id", "team_id", "user_id", "name", "email", "nickname", "role", "status", "joined_at", "invited_by", "approved_by", "approved_at"}
)

func newMockRepo(t *testing.T) (TeamRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresTeamRepository(db), mock
}

func TestPostgresTeamRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := created.Add(168 * time.Hour)

	mock.ExpectQuery(`(?s)SELECT .*FROM teams t\s+WHERE t.id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(teamRowColumns).
			AddRow("t1", "Platform", nil, "{u1}", "tok", expiry, true, nil, int64(3), created, created))
	mock.ExpectQuery(`(?s)SELECT .*FROM team_members`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow("m1", "t1", "u2", "Bob", "bob@example.com", "bobby", "Member", "pending", created, nil, nil, nil).
			AddRow("m2", "t1", "u3", "Eve", "eve@example.com", "eve", "Member", "active", created, nil, "u1", created))

	team, err := repo.GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Platform", team.Name)
	assert.Equal(t, []string{"u1"}, team.Admins)
	assert.Equal(t, int64(3), team.Version)
	require.NotNil(t, team.InviteToken)
	assert.Equal(t, "tok", *team.InviteToken)
	require.Len(t, team.Members, 2)
	assert.Equal(t, models.MemberStatusPending, team.Members[0].Status)
	assert.Equal(t, models.MemberStatusActive, team.Members[1].Status)
	require.NotNil(t, team.Members[1].ApprovedBy)
	assert.Equal(t, "u1", *team.Members[1].ApprovedBy)
}

func TestPostgresTeamRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SELECT .*FROM teams t\s+WHERE t.id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestPostgresTeamRepository_GetByUserID_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SELECT .*FROM teams t\s+WHERE \$1 = ANY\(t.admins\)`).
		WithArgs("u9").
		WillReturnRows(sqlmock.NewRows(teamRowColumns))

	teams, err := repo.GetByUserID(context.Background(), "u9")
	require.NoError(t, err)
	assert.NotNil(t, teams)
	assert.Empty(t, teams)
}

func TestPostgresTeamRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	team := models.NewTeam("Platform", nil, "u1", now)
	_, err := team.AddMember(models.TeamMember{ID: "m1", UserID: "u2", Nickname: "bob"}, now)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO teams`).
		WithArgs(sqlmock.AnyArg(), "Platform", nil, sqlmock.AnyArg(), nil, nil, true, nil).
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at", "updated_at"}).AddRow(int64(1), now, now))
	mock.ExpectExec(`INSERT INTO team_members`).
		WithArgs("m1", sqlmock.AnyArg(), "u2", "", "", "bob", models.DefaultMemberRole, sqlmock.AnyArg(), 0, now, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), team))
	assert.NotEmpty(t, team.ID)
	assert.Equal(t, int64(1), team.Version)
}

func TestPostgresTeamRepository_Update(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	team := &models.Team{ID: "t1", Name: "Platform", Admins: []string{"u1"}, IsActive: true, Version: 2}

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE teams`).
		WithArgs("t1", int64(2), "Platform", nil, sqlmock.AnyArg(), nil, nil, true, nil).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(3), now))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), team))
	assert.Equal(t, int64(3), team.Version)
	assert.Equal(t, now, team.UpdatedAt)
}

func TestPostgresTeamRepository_UpdateMissedRow(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{name: "stale version", exists: true, want: ErrTeamVersionConflict},
		{name: "deleted team", exists: false, want: ErrTeamNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			team := &models.Team{ID: "t1", Name: "Platform", Admins: []string{"u1"}, Version: 1}

			mock.ExpectBegin()
			mock.ExpectQuery(`UPDATE teams`).WillReturnError(sql.ErrNoRows)
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs("t1").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))
			mock.ExpectRollback()

			err := repo.Update(context.Background(), team)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int64(1), team.Version)
		})
	}
}

func TestPostgresTeamRepository_UpdateTokenCollision(t *testing.T) {
	repo, mock := newMockRepo(t)
	token := "dup"
	team := &models.Team{ID: "t1", Name: "Platform", Admins: []string{"u1"}, InviteToken: &token, Version: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE teams`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "teams_invite_token_key"})
	mock.ExpectRollback()

	err := repo.Update(context.Background(), team)
	assert.ErrorIs(t, err, ErrInviteTokenConflict)
}

func TestPostgresTeamRepository_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM teams WHERE id = \$1`).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM teams WHERE id = \$1`).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "t1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "t1"), ErrTeamNotFound)
}

func TestMapTeamWriteError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "token unique", err: &pq.Error{Code: "23505", Constraint: "teams_invite_token_key"}, want: ErrInviteTokenConflict},
		{name: "member unique", err: &pq.Error{Code: "23505", Constraint: "team_members_team_id_user_id_key"}, want: ErrMemberConflict},
		{name: "team fk", err: &pq.Error{Code: "23503", Constraint: "team_members_team_id_fkey"}, want: ErrTeamNotFound},
		{name: "other unique", err: &pq.Error{Code: "23505", Constraint: "something_else"}},
		{name: "plain", err: plain, want: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapTeamWriteError(tt.err)
			if tt.want == nil {
				assert.Same(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
