package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/team-space/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrTeamVersionConflict = errors.New("team was modified concurrently")
	ErrInviteTokenConflict = errors.New("invite token conflict")
	ErrMemberConflict      = errors.New("team member conflict")
)

// TeamRepository хранит агрегат Team целиком, вместе с участниками.
type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*models.Team, error)

	// GetByUserID returns teams where the user is an admin or an active member.
	GetByUserID(ctx context.Context, userID string) ([]*models.Team, error)

	GetByInviteToken(ctx context.Context, token string) (*models.Team, error)

	// Create assigns ID, CreatedAt, UpdatedAt and Version.
	Create(ctx context.Context, team *models.Team) error

	// Update saves the aggregate if team.Version still matches the stored one,
	// then bumps Version and refreshes UpdatedAt.
	Update(ctx context.Context, team *models.Team) error

	Delete(ctx context.Context, id string) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `t.id, t.name, t.description, t.admins, t.invite_token, t.invite_token_expiry,
		t.is_active, t.logo_key, t.version, t.created_at, t.updated_at`

func scanTeam(scanner interface{ Scan(dest ...any) error }) (*models.Team, error) {
	team := &models.Team{}
	err := scanner.Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		pq.Array(&team.Admins),
		&team.InviteToken,
		&team.InviteTokenExpiry,
		&team.IsActive,
		&team.LogoKey,
		&team.Version,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	team.Members = []models.TeamMember{}
	return team, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	if err := r.loadMembers(ctx, r.db, []*models.Team{team}); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		WHERE $1 = ANY(t.admins)
		   OR EXISTS (
				SELECT 1 FROM team_members m
				WHERE m.team_id = t.id AND m.user_id = $1 AND m.status = 'active')
		ORDER BY t.created_at, t.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, r.db, teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) GetByInviteToken(ctx context.Context, token string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.invite_token = $1`

	team, err := scanTeam(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	if err := r.loadMembers(ctx, r.db, []*models.Team{team}); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	team.ID = uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO teams (id, name, description, admins, invite_token, invite_token_expiry, is_active, logo_key, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, NOW(), NOW())
		RETURNING version, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		team.ID,
		team.Name,
		team.Description,
		pq.Array(team.Admins),
		team.InviteToken,
		team.InviteTokenExpiry,
		team.IsActive,
		team.LogoKey,
	).Scan(&team.Version, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return mapTeamWriteError(err)
	}

	if err := upsertMembers(ctx, tx, team); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresTeamRepository) Update(ctx context.Context, team *models.Team) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE teams
		SET name = $3, description = $4, admins = $5, invite_token = $6, invite_token_expiry = $7,
			is_active = $8, logo_key = $9, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`

	err = tx.QueryRowContext(ctx, query,
		team.ID,
		team.Version,
		team.Name,
		team.Description,
		pq.Array(team.Admins),
		team.InviteToken,
		team.InviteTokenExpiry,
		team.IsActive,
		team.LogoKey,
	).Scan(&team.Version, &team.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.classifyMissedUpdate(ctx, tx, team.ID)
		}
		return mapTeamWriteError(err)
	}

	if err := upsertMembers(ctx, tx, team); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM teams WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

// classifyMissedUpdate tells a missing team apart from a stale version.
func (r *postgresTeamRepository) classifyMissedUpdate(ctx context.Context, q querier, id string) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrTeamNotFound
	}
	return ErrTeamVersionConflict
}

func (r *postgresTeamRepository) loadMembers(ctx context.Context, q querier, teams []*models.Team) error {
	if len(teams) == 0 {
		return nil
	}

	byID := make(map[string]*models.Team, len(teams))
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	query := `
		SELECT id, team_id, user_id, name, email, nickname, role, status, joined_at, invited_by, approved_by, approved_at
		FROM team_members
		WHERE team_id = ANY($1)
		ORDER BY team_id, position`

	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.TeamMember
		var teamID string
		if scanErr := rows.Scan(
			&m.ID,
			&teamID,
			&m.UserID,
			&m.Name,
			&m.Email,
			&m.Nickname,
			&m.Role,
			&m.Status,
			&m.JoinedAt,
			&m.InvitedBy,
			&m.ApprovedBy,
			&m.ApprovedAt,
		); scanErr != nil {
			return scanErr
		}
		if t, ok := byID[teamID]; ok {
			t.Members = append(t.Members, m)
		}
	}
	return rows.Err()
}

func upsertMembers(ctx context.Context, q querier, team *models.Team) error {
	query := `
		INSERT INTO team_members (id, team_id, user_id, name, email, nickname, role, status, position, joined_at, invited_by, approved_by, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE
		SET nickname = EXCLUDED.nickname,
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			position = EXCLUDED.position,
			approved_by = EXCLUDED.approved_by,
			approved_at = EXCLUDED.approved_at`

	for i, m := range team.Members {
		_, err := q.ExecContext(ctx, query,
			m.ID,
			team.ID,
			m.UserID,
			m.Name,
			m.Email,
			m.Nickname,
			m.Role,
			m.Status,
			i,
			m.JoinedAt,
			m.InvitedBy,
			m.ApprovedBy,
			m.ApprovedAt,
		)
		if err != nil {
			return mapTeamWriteError(err)
		}
	}
	return nil
}

func mapTeamWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			switch pqErr.Constraint {
			case "teams_invite_token_key":
				return ErrInviteTokenConflict
			case "team_members_team_id_user_id_key":
				return ErrMemberConflict
			}
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "team_members_team_id_fkey" {
				return ErrTeamNotFound
			}
		}
	}
	return err
}
