package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Dosada05/team-space/models"
	"github.com/Dosada05/team-space/repositories"
	"github.com/Dosada05/team-space/storage"
	"github.com/google/uuid"
)

type CreateTeamInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type GenerateInviteInput struct {
	// ExpiryHours defaults to 168 when zero.
	ExpiryHours int `json:"expiry_hours,omitempty" validate:"omitempty,min=1,max=8760"`
}

type JoinTeamInput struct {
	InviteToken string `json:"invite_token" validate:"required"`
	Nickname    string `json:"nickname" validate:"required,max=50"`
}

type SendInviteEmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// TeamService exposes one method per membership use case.
type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput, creatorID string) (*models.Team, error)
	GetMyTeams(ctx context.Context, userID string) ([]*models.Team, error)
	GetTeamByID(ctx context.Context, teamID, requesterID string) (*models.Team, error)
	DeleteTeam(ctx context.Context, teamID, actorID string) error

	GenerateInviteToken(ctx context.Context, teamID, actorID string, expiryHours int) (*models.Invite, error)
	SendInviteEmail(ctx context.Context, teamID, actorID, email string) error
	JoinTeam(ctx context.Context, input JoinTeamInput, identity models.Identity) (*models.Team, error)

	GetPendingMembers(ctx context.Context, teamID, requesterID string) ([]models.TeamMember, error)
	ApproveMember(ctx context.Context, teamID, memberID, actorID string) (*models.TeamMember, error)
	RejectMember(ctx context.Context, teamID, memberID, actorID string) (*models.TeamMember, error)

	UploadTeamLogo(ctx context.Context, teamID, actorID, contentType string, file io.Reader) (*models.Team, error)

	// CanAccessTeam returns nil when userID may see the team.
	CanAccessTeam(ctx context.Context, teamID, userID string) error
}

// InviteMailer delivers invite links. *EmailService implements it.
type InviteMailer interface {
	SendTeamInviteEmail(to, teamName, inviteLink string, expiresAt time.Time) error
}

// TeamServiceConfig holds optional collaborators. Nil fields get defaults.
type TeamServiceConfig struct {
	Tokens    TokenGenerator
	Uploader  storage.FileUploader
	Mailer    InviteMailer
	Events    EventPublisher
	Logger    *slog.Logger
	PublicURL string
	Now       func() time.Time
}

type teamService struct {
	teamRepo  repositories.TeamRepository
	tokens    TokenGenerator
	uploader  storage.FileUploader
	mailer    InviteMailer
	events    EventPublisher
	logger    *slog.Logger
	publicURL string
	now       func() time.Time
}

func NewTeamService(teamRepo repositories.TeamRepository, cfg TeamServiceConfig) TeamService {
	s := &teamService{
		teamRepo:  teamRepo,
		tokens:    cfg.Tokens,
		uploader:  cfg.Uploader,
		mailer:    cfg.Mailer,
		events:    cfg.Events,
		logger:    cfg.Logger,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       cfg.Now,
	}
	if s.tokens == nil {
		s.tokens = NewCryptoTokenGenerator()
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput, creatorID string) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	var description *string
	if input.Description != nil {
		if d := strings.TrimSpace(*input.Description); d != "" {
			description = &d
		}
	}

	team := models.NewTeam(name, description, creatorID, s.now())
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	s.logger.InfoContext(ctx, "team created", slog.String("team_id", team.ID), slog.String("creator_id", creatorID))
	return s.present(team, creatorID), nil
}

func (s *teamService) GetMyTeams(ctx context.Context, userID string) ([]*models.Team, error) {
	teams, err := s.teamRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for user %s: %w", userID, err)
	}
	result := make([]*models.Team, 0, len(teams))
	for _, t := range teams {
		result = append(result, s.present(t, userID))
	}
	return result, nil
}

func (s *teamService) GetTeamByID(ctx context.Context, teamID, requesterID string) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	// Чужая команда неотличима от несуществующей.
	if !team.CanView(requesterID) {
		return nil, ErrTeamNotFound
	}
	return s.present(team, requesterID), nil
}

func (s *teamService) DeleteTeam(ctx context.Context, teamID, actorID string) error {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.IsAdmin(actorID) {
		return ErrAdminActionForbidden
	}

	if err := s.teamRepo.Delete(ctx, teamID); err != nil {
		return mapRepositoryError(err, "delete team")
	}

	if team.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *team.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete team logo", slog.String("team_id", teamID), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "team deleted", slog.String("team_id", teamID), slog.String("actor_id", actorID))
	s.publish(teamID, EventTeamDeleted, teamDeletedPayload{TeamID: teamID})
	s.events.CloseRoom(TeamRoom(teamID))
	return nil
}

func (s *teamService) GenerateInviteToken(ctx context.Context, teamID, actorID string, expiryHours int) (*models.Invite, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsAdmin(actorID) {
		return nil, ErrAdminActionForbidden
	}

	now := s.now()
	expiresAt, err := inviteExpiry(now, expiryHours)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.tokens.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invite token: %w", err)
		}
		if err := team.SetInviteToken(token, expiresAt, now); err != nil {
			return nil, fmt.Errorf("failed to set invite token: %w", err)
		}

		err = s.teamRepo.Update(ctx, team)
		if err == nil {
			s.logger.InfoContext(ctx, "invite token generated",
				slog.String("team_id", teamID),
				slog.String("actor_id", actorID),
				slog.Time("expires_at", expiresAt))
			s.publish(teamID, EventInviteTokenRotated, tokenRotatedPayload{TeamID: teamID, RotatedBy: actorID})
			return &models.Invite{TeamID: teamID, Token: token, ExpiresAt: expiresAt}, nil
		}
		// Конфликт токена, пробуем снова
		if !errors.Is(err, repositories.ErrInviteTokenConflict) {
			return nil, mapRepositoryError(err, "save invite token")
		}
		s.logger.WarnContext(ctx, "invite token collision, regenerating", slog.String("team_id", teamID), slog.Int("attempt", attempt+1))
	}

	return nil, fmt.Errorf("failed to generate unique invite token after %d attempts", maxTokenAttempts)
}

func (s *teamService) SendInviteEmail(ctx context.Context, teamID, actorID, email string) error {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.IsAdmin(actorID) {
		return ErrAdminActionForbidden
	}
	if s.mailer == nil {
		return ErrEmailDisabled
	}
	if !team.IsTokenValid(s.now()) {
		return ErrNoActiveInviteToken
	}

	var expiresAt time.Time
	if team.InviteTokenExpiry != nil {
		expiresAt = *team.InviteTokenExpiry
	}
	if err := s.mailer.SendTeamInviteEmail(email, team.Name, s.inviteLink(*team.InviteToken), expiresAt); err != nil {
		return fmt.Errorf("failed to send invite email for team %s: %w", teamID, err)
	}

	s.logger.InfoContext(ctx, "invite email sent", slog.String("team_id", teamID), slog.String("actor_id", actorID))
	return nil
}

func (s *teamService) JoinTeam(ctx context.Context, input JoinTeamInput, identity models.Identity) (*models.Team, error) {
	token := strings.TrimSpace(input.InviteToken)
	if token == "" {
		return nil, ErrInviteTokenRequired
	}
	nickname := strings.TrimSpace(input.Nickname)
	if nickname == "" {
		return nil, ErrNicknameRequired
	}

	team, err := s.teamRepo.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrInviteTokenNotFound
		}
		return nil, fmt.Errorf("failed to find team by invite token: %w", err)
	}

	now := s.now()
	if !team.IsTokenValid(now) {
		return nil, ErrInviteTokenExpired
	}

	member, err := team.AddMember(models.TeamMember{
		ID:       uuid.NewString(),
		UserID:   identity.UserID,
		Name:     identity.DisplayName,
		Email:    identity.Email,
		Nickname: nickname,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, mapRepositoryError(err, "save join request")
	}

	s.logger.InfoContext(ctx, "join request created",
		slog.String("team_id", team.ID),
		slog.String("member_id", member.ID),
		slog.String("user_id", identity.UserID))
	// Заявка видна только администраторам и самому заявителю.
	s.publishTo(team, []string{member.UserID}, EventMemberJoined, memberEventPayload{TeamID: team.ID, Member: member})
	return s.present(team, identity.UserID), nil
}

func (s *teamService) GetPendingMembers(ctx context.Context, teamID, requesterID string) ([]models.TeamMember, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsAdmin(requesterID) {
		return nil, ErrAdminActionForbidden
	}
	return team.PendingMembers(), nil
}

func (s *teamService) ApproveMember(ctx context.Context, teamID, memberID, actorID string) (*models.TeamMember, error) {
	return s.decideMember(ctx, teamID, memberID, actorID, EventMemberApproved, func(team *models.Team, now time.Time) (models.TeamMember, error) {
		return team.ApproveMember(memberID, actorID, now)
	})
}

func (s *teamService) RejectMember(ctx context.Context, teamID, memberID, actorID string) (*models.TeamMember, error) {
	return s.decideMember(ctx, teamID, memberID, actorID, EventMemberRejected, func(team *models.Team, now time.Time) (models.TeamMember, error) {
		return team.RejectMember(memberID, now)
	})
}

func (s *teamService) decideMember(
	ctx context.Context,
	teamID, memberID, actorID string,
	eventType string,
	apply func(team *models.Team, now time.Time) (models.TeamMember, error),
) (*models.TeamMember, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsAdmin(actorID) {
		return nil, ErrAdminActionForbidden
	}

	member, err := apply(team, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, mapRepositoryError(err, "save member decision")
	}

	s.logger.InfoContext(ctx, "membership decided",
		slog.String("team_id", teamID),
		slog.String("member_id", memberID),
		slog.String("status", string(member.Status)),
		slog.String("actor_id", actorID))
	payload := memberEventPayload{TeamID: teamID, Member: member}
	if member.IsActive() {
		s.publish(teamID, eventType, payload)
	} else {
		s.publishTo(team, []string{member.UserID}, eventType, payload)
	}
	if !team.CanView(member.UserID) {
		s.events.KickUser(TeamRoom(teamID), member.UserID)
	}
	return &member, nil
}

func (s *teamService) UploadTeamLogo(ctx context.Context, teamID, actorID, contentType string, file io.Reader) (*models.Team, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsAdmin(actorID) {
		return nil, ErrAdminActionForbidden
	}
	if s.uploader == nil {
		return nil, ErrLogoStorageDisabled
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("teams/%s/logo%s", teamID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload logo for team %s: %w", teamID, err)
	}

	previous := team.SetLogo(key, s.now())
	if err := s.teamRepo.Update(ctx, team); err != nil {
		if previous == nil || *previous != key {
			s.deleteObject(ctx, key)
		}
		return nil, mapRepositoryError(err, "save team logo")
	}

	if previous != nil && *previous != key {
		s.deleteObject(ctx, *previous)
	}

	s.logger.InfoContext(ctx, "team logo updated", slog.String("team_id", teamID), slog.String("key", key))
	return s.present(team, actorID), nil
}

func (s *teamService) CanAccessTeam(ctx context.Context, teamID, userID string) error {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.CanView(userID) {
		return ErrTeamNotFound
	}
	return nil
}

func (s *teamService) loadTeam(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapRepositoryError(err, "get team "+teamID)
	}
	return team, nil
}

// present prepares a team for the given viewer: the invite token and
// undecided or rejected members are visible to admins only.
func (s *teamService) present(team *models.Team, viewerID string) *models.Team {
	if !team.IsAdmin(viewerID) {
		team.InviteToken = nil
		team.InviteTokenExpiry = nil
		team.Members = team.MembersVisibleTo(viewerID)
	}
	populateTeamLogoURL(team, s.uploader)
	return team
}

func (s *teamService) inviteLink(token string) string {
	return s.publicURL + "/join/" + token
}

func (s *teamService) publish(teamID, eventType string, payload any) {
	room := TeamRoom(teamID)
	s.events.BroadcastToRoom(room, TeamEvent{Type: eventType, Payload: payload, RoomID: room})
}

// publishTo delivers an event to the team admins and the extra users only.
func (s *teamService) publishTo(team *models.Team, extra []string, eventType string, payload any) {
	room := TeamRoom(team.ID)
	recipients := append(slices.Clone(team.Admins), extra...)
	s.events.BroadcastToUsers(room, recipients, TeamEvent{Type: eventType, Payload: payload, RoomID: room})
}

func (s *teamService) deleteObject(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete stored object", slog.String("key", key), slog.Any("error", err))
	}
}
