// Command migrate applies, inspects and rolls back schema migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"pulsevote/internal/config"
	"pulsevote/internal/database"

	"gorm.io/gorm"
)

const usage = "usage: migrate <up|auto|status|down VERSION>"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return errors.New(usage)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Println("automigrate applied")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("%s: invalid version %q", usage, flag.Arg(1))
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback %d: %w", version, err)
		}
		log.Printf("rolled back migration %d", version)
	default:
		return errors.New(usage)
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	log.Printf("mode=%s env=%s sql=%t automigrate=%t", status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate)
	log.Printf("applied: %v", status.AppliedVersions)
	for _, m := range status.PendingMigrations {
		log.Printf("pending: %s", m.String())
	}
	return nil
}
