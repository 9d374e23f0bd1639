package repositories

import (
	"database/sql"
	"fmt"

	"github.com/Dosada05/team-space/models"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

// cloneTeam returns a deep copy so callers never share slices or pointers with the store.
func cloneTeam(t *models.Team) *models.Team {
	if t == nil {
		return nil
	}
	c := *t
	c.Description = cloneString(t.Description)
	c.InviteToken = cloneString(t.InviteToken)
	c.LogoKey = cloneString(t.LogoKey)
	c.LogoURL = cloneString(t.LogoURL)
	if t.InviteTokenExpiry != nil {
		exp := *t.InviteTokenExpiry
		c.InviteTokenExpiry = &exp
	}
	c.Admins = append([]string(nil), t.Admins...)
	c.Members = make([]models.TeamMember, len(t.Members))
	for i, m := range t.Members {
		m.InvitedBy = cloneString(m.InvitedBy)
		m.ApprovedBy = cloneString(m.ApprovedBy)
		if m.ApprovedAt != nil {
			at := *m.ApprovedAt
			m.ApprovedAt = &at
		}
		c.Members[i] = m
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
