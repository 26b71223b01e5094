package main

import (
	"context"
	"flag"
	"log"

	"github.com/TexasCoding/projectx-go/internal/config"
	"github.com/TexasCoding/projectx-go/pkg/logger"
	"github.com/TexasCoding/projectx-go/pkg/migration"
	"github.com/TexasCoding/projectx-go/pkg/questdb"
)

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all)")
		dir       = flag.String("dir", "internal/infrastructure/questdb/migrations", "Migration directory")
	)
	flag.Parse()

	ctx := context.Background()

	cfg := &struct {
		QuestDB questdb.Config `envPrefix:"QUESTDB_"`
	}{}
	if err := config.Load(cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	questdbClient, err := questdb.NewClient(ctx, cfg.QuestDB)
	if err != nil {
		log.Fatalf("Failed to initialize QuestDB client: %v", err)
	}
	defer questdbClient.Close()

	runner := migration.NewRunner(ctx, questdbClient, *dir, zlog)

	if err := runner.EnsureMigrationTable(); err != nil {
		log.Fatalf("Failed to create migration table: %v", err)
	}

	switch *direction {
	case "up":
		if err := runner.MigrateUp(*steps); err != nil {
			log.Fatalf("Failed to migrate up: %v", err)
		}
	case "down":
		if err := runner.MigrateDown(*steps); err != nil {
			log.Fatalf("Failed to migrate down: %v", err)
		}
	default:
		log.Fatalf("Invalid direction: %s. Use 'up' or 'down'", *direction)
	}

	log.Printf("Migration %s completed successfully", *direction)
}
