package db

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaIsIdempotent(t *testing.T) {
	for _, stmt := range []string{"CREATE TABLE IF NOT EXISTS teams", "CREATE TABLE IF NOT EXISTS team_members"} {
		assert.Contains(t, schemaSQL, stmt)
	}
	assert.NotContains(t, strings.ToUpper(schemaSQL), "DROP TABLE")
}

func TestMigrate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(schemaSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), conn))

	mock.ExpectExec(regexp.QuoteMeta(schemaSQL)).WillReturnError(errors.New("permission denied"))
	err = Migrate(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")

	assert.NoError(t, mock.ExpectationsWereMet())
}
