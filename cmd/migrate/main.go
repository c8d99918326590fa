// Command migrate applies or inspects the record schema for the configured
// database driver.
//
//	migrate up            apply every pending migration
//	migrate down          revert every migration
//	migrate steps N       apply N (or revert -N) migrations
//	migrate version       print the current version
//	migrate force V       mark version V as clean without running it
//
// Connection settings come from config.toml and PESTWATCH_DB_* variables.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/migrations"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate up|down|steps N|version|force V")
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(flag.Args(), logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, logger *slog.Logger) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m, err := migrations.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer m.Close()

	logger = logger.With("driver", cfg.Database.Driver)

	switch cmd := args[0]; cmd {
	case "up":
		return ignoreNoChange(m.Up(), logger, "schema up to date")
	case "down":
		return ignoreNoChange(m.Down(), logger, "schema reverted")
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return ignoreNoChange(m.Steps(n), logger, "steps applied", "steps", n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(v); err != nil {
			return err
		}
		logger.Info("version forced", "version", v)
		return nil
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("current version", "version", v, "dirty", dirty)
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func ignoreNoChange(err error, logger *slog.Logger, msg string, attrs ...any) error {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	logger.Info(msg, attrs...)
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a numeric argument", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", args[0], err)
	}
	return n, nil
}
