package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fleet-service-api/pkg/config"
)

func TestMigrateAppliesEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.MatchExpectationsInOrder(true)
	mock.ExpectBegin()
	for range schema {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, Migrate(context.Background(), sqlx.NewDb(db, "sqlmock"), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE EXTENSION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS technicians").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = Migrate(context.Background(), sqlx.NewDb(db, "sqlmock"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration step 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaKeepsOverlapConstraint(t *testing.T) {
	var found bool
	for _, stmt := range schema {
		if strings.Contains(stmt, "schedule_blocks_no_overlap") &&
			strings.Contains(stmt, "EXCLUDE USING gist") &&
			strings.Contains(stmt, "tstzrange(start_at, end_at, '[)')") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=fleet sslmode=disable",
		DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "fleet", SSLMode: "disable"}))
}
