package repositories

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/team-space/models"
	"github.com/google/uuid"
)

// memoryTeamRepository is used with STORAGE_DRIVER=memory and in tests.
// It follows the same version-check rules as the Postgres implementation.
type memoryTeamRepository struct {
	mu    sync.RWMutex
	teams map[string]*models.Team
	now   func() time.Time
}

func NewMemoryTeamRepository(now func() time.Time) TeamRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryTeamRepository{
		teams: make(map[string]*models.Team),
		now:   now,
	}
}

func (r *memoryTeamRepository) GetByID(_ context.Context, id string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[id]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return cloneTeam(team), nil
}

func (r *memoryTeamRepository) GetByUserID(_ context.Context, userID string) ([]*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Team, 0)
	for _, team := range r.teams {
		if team.IsAdmin(userID) || team.IsActiveMember(userID) {
			result = append(result, cloneTeam(team))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryTeamRepository) GetByInviteToken(_ context.Context, token string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, team := range r.teams {
		if team.InviteToken != nil && *team.InviteToken == token {
			return cloneTeam(team), nil
		}
	}
	return nil, ErrTeamNotFound
}

func (r *memoryTeamRepository) Create(_ context.Context, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(team); err != nil {
		return err
	}

	now := r.now()
	team.ID = uuid.NewString()
	team.CreatedAt = now
	team.UpdatedAt = now
	team.Version = 1
	if team.Members == nil {
		team.Members = []models.TeamMember{}
	}
	r.teams[team.ID] = cloneTeam(team)
	return nil
}

func (r *memoryTeamRepository) Update(_ context.Context, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.teams[team.ID]
	if !ok {
		return ErrTeamNotFound
	}
	if stored.Version != team.Version {
		return ErrTeamVersionConflict
	}
	if err := r.checkUnique(team); err != nil {
		return err
	}

	team.Version++
	team.UpdatedAt = r.now()
	r.teams[team.ID] = cloneTeam(team)
	return nil
}

func (r *memoryTeamRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[id]; !ok {
		return ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

// checkUnique mirrors the unique indexes on teams.invite_token and
// team_members(team_id, user_id).
func (r *memoryTeamRepository) checkUnique(team *models.Team) error {
	if team.InviteToken != nil {
		for id, other := range r.teams {
			if id == team.ID || other.InviteToken == nil {
				continue
			}
			if *other.InviteToken == *team.InviteToken {
				return ErrInviteTokenConflict
			}
		}
	}
	userIDs := make([]string, 0, len(team.Members))
	for _, m := range team.Members {
		if slices.Contains(userIDs, m.UserID) {
			return ErrMemberConflict
		}
		userIDs = append(userIDs, m.UserID)
	}
	return nil
}
