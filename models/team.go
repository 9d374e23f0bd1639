package models

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrMemberNotPending = errors.New("member is not pending approval")
	ErrAlreadyMember    = errors.New("user is already a member of this team")
	ErrEmptyInviteToken = errors.New("invite token must not be empty")
)

// Team is the aggregate root: it owns the admin set, the member list and the
// current invite token. Members are appended in join order.
type Team struct {
	ID                string       `json:"id" db:"id"`
	Name              string       `json:"name" db:"name"`
	Description       *string      `json:"description,omitempty" db:"description"`
	Admins            []string     `json:"admins" db:"admins"`
	Members           []TeamMember `json:"members" db:"-"`
	InviteToken       *string      `json:"invite_token,omitempty" db:"invite_token"`
	InviteTokenExpiry *time.Time   `json:"invite_token_expiry,omitempty" db:"invite_token_expiry"`
	IsActive          bool         `json:"is_active" db:"is_active"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
	Version           int64        `json:"version" db:"version"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`
}

// NewTeam builds a team whose only admin is the creator.
func NewTeam(name string, description *string, creatorID string, now time.Time) *Team {
	return &Team{
		Name:        name,
		Description: description,
		Admins:      []string{creatorID},
		Members:     []TeamMember{},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (t *Team) IsAdmin(userID string) bool {
	return slices.Contains(t.Admins, userID)
}

// IsTokenValid reports whether a token is set and has not expired at now.
// A token without expiry never expires.
func (t *Team) IsTokenValid(now time.Time) bool {
	if t.InviteToken == nil || *t.InviteToken == "" {
		return false
	}
	return t.InviteTokenExpiry == nil || t.InviteTokenExpiry.After(now)
}

// FindMember returns a copy of the member with the given membership id.
func (t *Team) FindMember(memberID string) (TeamMember, bool) {
	if i := t.memberIndex(memberID); i >= 0 {
		return t.Members[i], true
	}
	return TeamMember{}, false
}

// HasMember looks at presence only, status is ignored.
func (t *Team) HasMember(userID string) bool {
	return slices.ContainsFunc(t.Members, func(m TeamMember) bool { return m.UserID == userID })
}

func (t *Team) IsActiveMember(userID string) bool {
	return slices.ContainsFunc(t.Members, func(m TeamMember) bool { return m.UserID == userID && m.IsActive() })
}

func (t *Team) IsPendingMember(userID string) bool {
	return slices.ContainsFunc(t.Members, func(m TeamMember) bool { return m.UserID == userID && m.IsPending() })
}

// CanView: admins, active members and pending members may see the team.
func (t *Team) CanView(userID string) bool {
	return t.IsAdmin(userID) || t.IsActiveMember(userID) || t.IsPendingMember(userID)
}

// MembersVisibleTo returns the members viewerID may see. Admins see everyone;
// anyone else sees active members plus their own membership record.
func (t *Team) MembersVisibleTo(viewerID string) []TeamMember {
	if t.IsAdmin(viewerID) {
		return t.Members
	}
	result := make([]TeamMember, 0, len(t.Members))
	for _, m := range t.Members {
		if m.IsActive() || m.UserID == viewerID {
			result = append(result, m)
		}
	}
	return result
}

func (t *Team) PendingMembers() []TeamMember {
	return t.membersWithStatus(MemberStatusPending)
}

func (t *Team) ActiveMembers() []TeamMember {
	return t.membersWithStatus(MemberStatusActive)
}

// AddMember appends m as a pending member with the default role.
func (t *Team) AddMember(m TeamMember, now time.Time) (TeamMember, error) {
	if t.HasMember(m.UserID) {
		return TeamMember{}, ErrAlreadyMember
	}
	m.Status = MemberStatusPending
	if m.Role == "" {
		m.Role = DefaultMemberRole
	}
	m.JoinedAt = now
	m.ApprovedBy = nil
	m.ApprovedAt = nil
	t.Members = append(t.Members, m)
	t.UpdatedAt = now
	return m, nil
}

// ApproveMember moves a pending member to active and records the approver.
func (t *Team) ApproveMember(memberID, approverID string, now time.Time) (TeamMember, error) {
	i := t.memberIndex(memberID)
	if i < 0 {
		return TeamMember{}, ErrMemberNotFound
	}
	if !t.Members[i].IsPending() {
		return TeamMember{}, ErrMemberNotPending
	}
	approvedAt := now
	approver := approverID
	t.Members[i].Status = MemberStatusActive
	t.Members[i].ApprovedBy = &approver
	t.Members[i].ApprovedAt = &approvedAt
	t.UpdatedAt = now
	return t.Members[i], nil
}

// RejectMember moves a pending member to inactive. Neither the rejecting admin
// nor the time of rejection is recorded.
func (t *Team) RejectMember(memberID string, now time.Time) (TeamMember, error) {
	i := t.memberIndex(memberID)
	if i < 0 {
		return TeamMember{}, ErrMemberNotFound
	}
	if !t.Members[i].IsPending() {
		return TeamMember{}, ErrMemberNotPending
	}
	t.Members[i].Status = MemberStatusInactive
	t.UpdatedAt = now
	return t.Members[i], nil
}

// SetInviteToken replaces the current token; the previous one stops working immediately.
func (t *Team) SetInviteToken(token string, expiry time.Time, now time.Time) error {
	if token == "" {
		return ErrEmptyInviteToken
	}
	exp := expiry
	t.InviteToken = &token
	t.InviteTokenExpiry = &exp
	t.UpdatedAt = now
	return nil
}

// SetLogo points the team at a new logo object and returns the previous key, if any.
func (t *Team) SetLogo(key string, now time.Time) (previous *string) {
	previous = t.LogoKey
	t.LogoKey = &key
	t.LogoURL = nil
	t.UpdatedAt = now
	return previous
}

func (t *Team) memberIndex(memberID string) int {
	return slices.IndexFunc(t.Members, func(m TeamMember) bool { return m.ID == memberID })
}

func (t *Team) membersWithStatus(status MemberStatus) []TeamMember {
	result := make([]TeamMember, 0)
	for _, m := range t.Members {
		if m.Status == status {
			result = append(result, m)
		}
	}
	return result
}
