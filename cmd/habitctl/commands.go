package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/app"
	"github.com/noah-isme/workhabits-api/internal/models"
	"github.com/noah-isme/workhabits-api/pkg/config"
	"github.com/noah-isme/workhabits-api/pkg/database"
	"github.com/noah-isme/workhabits-api/pkg/logger"
)

const cliUserAgent = "habitctl"

var errOwnerRequired = errors.New("--owner is required")

// deps are the seams tests replace.
type deps struct {
	loadConfig func() (*config.Config, error)
	connect    func(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error)
	newLogger  func(cfg *config.Config) (*zap.Logger, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		connect:    database.NewPostgres,
		newLogger:  logger.New,
	}
}

// session is an open database plus the services built on it.
type session struct {
	db        *sqlx.DB
	container *app.Container
	logger    *zap.Logger
}

func (d deps) open(ctx context.Context) (*session, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// The CLI never serves downloads, so skip the report pipeline.
	cliCfg := *cfg
	cliCfg.Reports.Enabled = false

	logr, err := d.newLogger(&cliCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := d.connect(ctx, cliCfg.Database)
	if err != nil {
		return nil, err
	}
	// Cache entries for the owner expire on their own TTL; the CLI does not
	// connect to Redis.
	container, err := app.New(&cliCfg, db, nil, logr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{db: db, container: container, logger: logr}, nil
}

func (s *session) close() {
	_ = s.db.Close()
	_ = s.logger.Sync()
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "habitctl",
		Short:         "Operate the work habits API datastore",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(d), newSeedCmd(d), newClearCmd(d), newTokenCmd(d))
	return root
}

func newMigrateCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := d.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			applied, err := database.Migrate(cmd.Context(), s.db)
			if err != nil {
				return err
			}
			return printMigrations(cmd.OutOrStdout(), applied)
		},
	}
}

func printMigrations(w io.Writer, applied []string) error {
	if len(applied) == 0 {
		_, err := fmt.Fprintln(w, "schema up to date")
		return err
	}
	for _, version := range applied {
		if _, err := fmt.Fprintf(w, "applied %s\n", version); err != nil {
			return err
		}
	}
	return nil
}

func newSeedCmd(d deps) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo roster and entries for an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == "" {
				return errOwnerRequired
			}
			s, err := d.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.container.Demo.Seed(cmd.Context(), owner, models.AuditContext{UserAgent: cliUserAgent})
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (students: %d, entries: %d)\n", result.Message, result.StudentsCreated, result.EntriesCreated)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner (teacher account) id")
	return cmd
}

func newClearCmd(d deps) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every student and entry of an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == "" {
				return errOwnerRequired
			}
			s, err := d.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.container.Demo.Clear(cmd.Context(), owner, models.AuditContext{UserAgent: cliUserAgent})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (students: %d, entries: %d)\n", result.Message, result.StudentsDeleted, result.EntriesDeleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner (teacher account) id")
	return cmd
}

func newTokenCmd(d deps) *cobra.Command {
	var (
		owner string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == "" {
				return errOwnerRequired
			}
			s, err := d.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			token, expiresAt, err := s.container.Auth.IssueToken(cmd.Context(), owner, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner (teacher account) id")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
