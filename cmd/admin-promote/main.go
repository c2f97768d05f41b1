package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"spark.backend/internal/config"
	"spark.backend/internal/domain/entities"
	"spark.backend/internal/infrastructure/repositories"
)

var openAdminPromoteDB = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" {
		return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
	}
	return gorm.Open(postgres.New(postgres.Config{DSN: cfg.URL(), PreferSimpleProtocol: true}), &gorm.Config{PrepareStmt: false})
}

var openAdminSQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

type roleStore interface {
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error
}

type adminPromoteDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (roleStore, io.Closer, error)
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultAdminPromoteDeps() adminPromoteDeps {
	return adminPromoteDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (roleStore, io.Closer, error) {
			db, err := openAdminPromoteDB(cfg.Database)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}

			sqlDB, err := openAdminSQLDB(db)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
			}

			return repositories.NewUserRepository(db), sqlDB, nil
		},
		out: os.Stdout,
	}
}

func parseRole(role string, demote bool) (entities.UserRole, error) {
	if demote {
		return entities.UserRoleUser, nil
	}
	switch r := entities.UserRole(strings.ToUpper(strings.TrimSpace(role))); r {
	case entities.UserRoleAdmin, entities.UserRoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

func runAdminPromote(args []string, deps adminPromoteDeps) error {
	def := defaultAdminPromoteDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.prepare == nil {
		deps.prepare = def.prepare
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("admin-promote", flag.ContinueOnError)
	emailFlag := fs.String("email", "", "account email (required)")
	roleFlag := fs.String("role", string(entities.UserRoleAdmin), "role to grant")
	demoteFlag := fs.Bool("demote", false, "shorthand for -role USER")
	if err := fs.Parse(args); err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(*emailFlag))
	if email == "" {
		return fmt.Errorf("--email is required")
	}
	role, err := parseRole(*roleFlag, *demoteFlag)
	if err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := deps.loadCfg()
	users, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	ctx := context.Background()
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", email, err)
	}
	if user.Role == role {
		_, _ = fmt.Fprintf(deps.out, "user %s already has role %s\n", email, role)
		return nil
	}

	if err := users.UpdateRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("failed updating role: %w", err)
	}

	_, _ = fmt.Fprintf(deps.out, "user_id=%s\n", user.ID.String())
	_, _ = fmt.Fprintf(deps.out, "role=%s (was %s)\n", role, user.Role)
	return nil
}

func main() {
	if err := runAdminPromote(os.Args[1:], defaultAdminPromoteDeps()); err != nil {
		log.Fatal(err)
	}
}
