package services

import (
	"errors"

	"github.com/Dosada05/team-space/models"
)

// Ошибки сервисного слоя. Вызывающий код различает их по ErrorKind, а не по тексту.
var (
	// Ресурс не найден
	ErrTeamNotFound        = errors.New("team not found")
	ErrMemberNotFound      = models.ErrMemberNotFound
	ErrInviteTokenNotFound = errors.New("invite token not found")

	// Ошибки авторизации
	ErrAdminActionForbidden = errors.New("only team admins can perform this action")

	// Ошибки бизнес-правил
	ErrInviteTokenExpired  = errors.New("invite token has expired")
	ErrAlreadyMember       = models.ErrAlreadyMember
	ErrMemberNotPending    = models.ErrMemberNotPending
	ErrNoActiveInviteToken = errors.New("team has no active invite token")
	ErrInvalidExpiryHours  = errors.New("invite token lifetime must be between 1 and 8760 hours")
	ErrValidationFailed    = errors.New("validation failed")
	ErrTeamNameRequired    = errors.New("team name is required")
	ErrNicknameRequired    = errors.New("nickname is required")
	ErrInviteTokenRequired = errors.New("invite token is required")
	ErrUnsupportedLogoType = errors.New("unsupported logo content type")
	ErrLogoStorageDisabled = errors.New("logo storage is not configured")
	ErrEmailDisabled       = errors.New("email delivery is not configured")

	// Ошибки конфликтов
	ErrConcurrentUpdate = errors.New("team was modified by another request, reload and retry")
)

// ErrorKind groups service errors into the categories the transport layer maps to responses.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindInvalidState
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

var errorKinds = []struct {
	kind ErrorKind
	errs []error
}{
	{KindNotFound, []error{ErrTeamNotFound, ErrMemberNotFound, ErrInviteTokenNotFound}},
	{KindUnauthorized, []error{ErrAdminActionForbidden}},
	{KindInvalidState, []error{
		ErrInviteTokenExpired,
		ErrAlreadyMember,
		ErrMemberNotPending,
		ErrNoActiveInviteToken,
		ErrInvalidExpiryHours,
		ErrValidationFailed,
		ErrTeamNameRequired,
		ErrNicknameRequired,
		ErrInviteTokenRequired,
		ErrUnsupportedLogoType,
		ErrLogoStorageDisabled,
		ErrEmailDisabled,
	}},
	{KindConflict, []error{ErrConcurrentUpdate}},
}

// KindOf classifies err. Anything not produced by this package is KindUnexpected.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnexpected
	}
	for _, group := range errorKinds {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.kind
			}
		}
	}
	return KindUnexpected
}
