package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"spark.backend/internal/config"
	"spark.backend/internal/infrastructure/migrations"
)

var openMigrateDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

type migrateDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	open    func(cfg *config.Config) (*sql.DB, error)
	load    func() ([]migrations.Migration, error)
	out     io.Writer
}

func defaultMigrateDeps() migrateDeps {
	return migrateDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		open: func(cfg *config.Config) (*sql.DB, error) {
			return openMigrateDB(cfg.Database.URL())
		},
		load: migrations.Load,
		out:  os.Stdout,
	}
}

func runMigrate(args []string, deps migrateDeps) error {
	def := defaultMigrateDeps()
	if deps.loadEnv == nil {
		deps.loadEnv = def.loadEnv
	}
	if deps.loadCfg == nil {
		deps.loadCfg = def.loadCfg
	}
	if deps.open == nil {
		deps.open = def.open
	}
	if deps.load == nil {
		deps.load = def.load
	}
	if deps.out == nil {
		deps.out = def.out
	}

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	status := fs.Bool("status", false, "list migrations and whether they are applied, without applying")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := deps.loadCfg()

	all, err := deps.load()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	db, err := deps.open(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect db: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach db: %w", err)
	}

	runner := migrations.NewRunner(db)
	if *status {
		applied, err := runner.Applied(ctx)
		if err != nil {
			return err
		}
		for _, m := range all {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			_, _ = fmt.Fprintf(deps.out, "%s\t%s\n", m.Version, state)
		}
		return nil
	}

	done, err := runner.Up(ctx, all)
	for _, v := range done {
		_, _ = fmt.Fprintf(deps.out, "applied %s\n", v)
	}
	if err != nil {
		return err
	}
	if len(done) == 0 {
		_, _ = fmt.Fprintln(deps.out, "schema is up to date")
	}
	return nil
}

func main() {
	if err := runMigrate(os.Args[1:], defaultMigrateDeps()); err != nil {
		log.Fatal(err)
	}
}
