package database

import (
	"errors"
	"fmt"
	"testing"

	"session_control_backend/internal/config"
	"session_control_backend/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlreadyExists(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: pgDuplicateTable}, true},
		{fmt.Errorf("migrate: %w", &pgconn.PgError{Code: pgDuplicateObject}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("Error 1050 (42S01): Table 'sessions' already exists"), true},
		{errors.New("view session_teachers already exists"), true},
		{errors.New("no such table: sessions"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, alreadyExists(tc.err), tc.err.Error())
	}
}

func TestMigrateSkipsExistingObjects(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:migrate_existing?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	// a view occupying a table name makes CREATE TABLE fail with "already exists"
	require.NoError(t, db.Exec("CREATE VIEW session_teachers AS SELECT 1 AS id").Error)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable(&model.Session{}))
	assert.True(t, db.Migrator().HasTable(&model.VerifiedAnswer{}))
}
