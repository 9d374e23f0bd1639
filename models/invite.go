package models

import "time"

// Invite is the result of issuing an invite token for a team.
type Invite struct {
	TeamID    string    `json:"team_id"`
	Token     string    `json:"invite_token"`
	ExpiresAt time.Time `json:"expiry"`
}

// Identity describes the authenticated caller as resolved by the transport layer.
type Identity struct {
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	Email       string            `json:"email"`
	Claims      map[string]string `json:"claims,omitempty"`
}
