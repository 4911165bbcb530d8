package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joao-fontenele/fooddelivery/internal/config"
)

const usage = "usage: migrate <up|down [N]|version|force N>"

// migrator is the subset of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(v int) error
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	flag.Parse()
	if flag.NArg() < 1 {
		logger.Error(usage)
		os.Exit(2)
	}

	if err := cfg.RequireDatabase(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	source := config.EnvDefault("MIGRATIONS_PATH", "file://migrations")
	m, err := migrate.New(source, cfg.PostgresURL)
	if err != nil {
		logger.Error("open migrations", "source", source, "error", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	if err := run(m, logger, flag.Args()); err != nil {
		logger.Error("migrate "+flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(m migrator, logger *slog.Logger, args []string) error {
	switch args[0] {
	case "up":
		return noChangeOK(m.Up(), logger, "schema is up to date", "migrations applied")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := positiveInt(args[1])
			if err != nil {
				return err
			}
			steps = n
		}
		return noChangeOK(m.Steps(-steps), logger, "nothing to roll back", "rolled back", "steps", steps)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("schema version", "version", version, "dirty", dirty)
		return nil

	case "force":
		if len(args) < 2 {
			return errors.New("force needs a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("version %q: %w", args[1], err)
		}
		if err := m.Force(version); err != nil {
			return err
		}
		logger.Info("version forced", "version", version)
		return nil
	}

	return fmt.Errorf("unknown command %q; %s", args[0], usage)
}

func noChangeOK(err error, logger *slog.Logger, unchanged, changed string, attrs ...any) error {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info(unchanged)
		return nil
	case err != nil:
		return err
	}
	logger.Info(changed, attrs...)
	return nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("step count %q must be a positive integer", s)
	}
	return n, nil
}
