package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/team-space/models"
	"github.com/Dosada05/team-space/repositories"
	"github.com/Dosada05/team-space/storage"
)

// mapRepositoryError - общий хелпер для ошибок репозитория
func mapRepositoryError(err error, op string) error {
	switch {
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamVersionConflict):
		return ErrConcurrentUpdate
	case errors.Is(err, repositories.ErrMemberConflict):
		// Два параллельных запроса на вступление от одного пользователя
		return ErrAlreadyMember
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func populateTeamLogoURL(team *models.Team, uploader storage.FileUploader) {
	if team != nil && team.LogoKey != nil && *team.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*team.LogoKey)
		if url != "" {
			team.LogoURL = &url
		}
	}
}

// GetExtensionFromContentType accepts image content types only.
func GetExtensionFromContentType(contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	case "image/svg+xml":
		return ".svg", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLogoType, contentType)
	}
}
