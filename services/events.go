package services

import "github.com/Dosada05/team-space/models"

// Типы событий, рассылаемых подписчикам комнаты команды.
const (
	EventMemberJoined       = "MEMBER_JOINED"
	EventMemberApproved     = "MEMBER_APPROVED"
	EventMemberRejected     = "MEMBER_REJECTED"
	EventInviteTokenRotated = "INVITE_TOKEN_ROTATED"
	EventTeamDeleted        = "TEAM_DELETED"
)

// EventPublisher is satisfied by the websocket hub.
type EventPublisher interface {
	BroadcastToRoom(roomID string, message any)
	// BroadcastToUsers delivers only to the listed users' connections in the room.
	BroadcastToUsers(roomID string, userIDs []string, message any)
	// KickUser disconnects a user who can no longer see the team.
	KickUser(roomID, userID string)
	CloseRoom(roomID string)
}

// TeamEvent is the envelope delivered to websocket clients.
type TeamEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	RoomID  string `json:"room_id,omitempty"`
}

type memberEventPayload struct {
	TeamID string            `json:"team_id"`
	Member models.TeamMember `json:"member"`
}

type tokenRotatedPayload struct {
	TeamID    string `json:"team_id"`
	RotatedBy string `json:"rotated_by"`
}

type teamDeletedPayload struct {
	TeamID string `json:"team_id"`
}

// TeamRoom returns the websocket room name for a team.
func TeamRoom(teamID string) string {
	return "team_" + teamID
}

type noopPublisher struct{}

func (noopPublisher) BroadcastToRoom(string, any)            {}
func (noopPublisher) BroadcastToUsers(string, []string, any) {}
func (noopPublisher) KickUser(string, string)                {}
func (noopPublisher) CloseRoom(string)                       {}
