// Command backup dumps the events database using pg_dump. Run it from cron or by hand
// before risky migrations.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/gatherly/gatherly/internal/log"
	"github.com/gatherly/gatherly/pkg/config"
	pg "github.com/habx/pg-commands"
)

func main() {
	logger := slog.New(log.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	destination := os.Getenv("BACKUP_PATH")
	if destination == "" {
		destination = "."
	}

	dump, err := pg.NewDump(&pg.Postgres{
		Host:     cfg.Postgresql.Host,
		Port:     cfg.Postgresql.Port,
		DB:       cfg.Postgresql.DatabaseName,
		Username: cfg.Postgresql.Username,
		Password: cfg.Postgresql.Password,
	})
	if err != nil {
		return err
	}
	dump.SetPath(destination)

	dumpExec := dump.Exec(pg.ExecOptions{StreamPrint: true, StreamDestination: os.Stdout})
	if dumpExec.Error != nil {
		logger.Error("Dump failed", "output", dumpExec.Output)
		return fmt.Errorf("failed to dump database %q: %v", cfg.Postgresql.DatabaseName, dumpExec.Error.Err)
	}

	logger.Info("Dump written", "file", path.Join(destination, dumpExec.File))
	return nil
}
