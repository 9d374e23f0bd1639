package models

import "time"

// MemberStatus представляет статус участия в команде.
type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// DefaultMemberRole is assigned to every member created through the join flow.
const DefaultMemberRole = "Member"

// TeamMember is owned by exactly one Team and is only changed through Team methods.
type TeamMember struct {
	ID         string       `json:"id" db:"id"`
	UserID     string       `json:"user_id" db:"user_id"`
	Name       string       `json:"name" db:"name"`
	Email      string       `json:"email" db:"email"`
	Nickname   string       `json:"nickname" db:"nickname"`
	Role       string       `json:"role" db:"role"`
	Status     MemberStatus `json:"status" db:"status"`
	JoinedAt   time.Time    `json:"joined_at" db:"joined_at"`
	InvitedBy  *string      `json:"invited_by,omitempty" db:"invited_by"`
	ApprovedBy *string      `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt *time.Time   `json:"approved_at,omitempty" db:"approved_at"`
}

func (m TeamMember) IsPending() bool {
	return m.Status == MemberStatusPending
}

func (m TeamMember) IsActive() bool {
	return m.Status == MemberStatusActive
}

func (m TeamMember) IsInactive() bool {
	return m.Status == MemberStatusInactive
}

// IsValid reports whether s is one of the known statuses.
func (s MemberStatus) IsValid() bool {
	switch s {
	case MemberStatusPending, MemberStatusActive, MemberStatusInactive:
		return true
	default:
		return false
	}
}
