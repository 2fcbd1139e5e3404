package main

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/pkg/config"
)

func mockDeps(t *testing.T) (deps, sqlmock.Sqlmock) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")

	return deps{
		loadConfig: func() (*config.Config, error) {
			return &config.Config{
				JWT:     config.JWTConfig{Secret: "cli-secret", Expiration: time.Hour},
				Reports: config.ReportsConfig{Enabled: true, StorageDir: t.TempDir()},
			}, nil
		},
		connect: func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
			return db, nil
		},
		newLogger: func(*config.Config) (*zap.Logger, error) { return zap.NewNop(), nil },
	}, mock
}

func execute(t *testing.T, d deps, args ...string) (string, error) {
	cmd := newRootCmd(d)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOwnerFlagRequired(t *testing.T) {
	d, _ := mockDeps(t)
	for _, name := range []string{"seed", "clear", "token"} {
		_, err := execute(t, d, name)
		assert.ErrorIs(t, err, errOwnerRequired, name)
	}
}

func TestMigrateReportsAppliedVersions(t *testing.T) {
	d, mock := mockDeps(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs("0001_init").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	out, err := execute(t, d, "migrate")

	require.NoError(t, err)
	assert.Equal(t, "applied 0001_init\n", out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenPrintsSignedJWT(t *testing.T) {
	d, mock := mockDeps(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "active", "last_login", "created_at", "updated_at"}).
			AddRow("owner-1", "teacher@example.com", "hash", "Ms Rivera", true, nil, now, now))
	mock.ExpectClose()

	out, err := execute(t, d, "token", "--owner", "owner-1", "--ttl", "1h")

	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}
