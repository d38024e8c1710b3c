package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/database"
	"github.com/stemsi/ujian-proctor/internal/logger"
	"github.com/stemsi/ujian-proctor/internal/repository"
	"github.com/stemsi/ujian-proctor/internal/roster"
	"github.com/stemsi/ujian-proctor/internal/service"
)

func main() {
	cfg := config.Load()

	var path string
	flag.StringVar(&path, "file", cfg.RosterPath, "Roster file (.json or .xlsx)")
	flag.Parse()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ros, err := roster.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load roster")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	participantService := service.NewParticipantService(repository.NewParticipantRepository(pool), ros, log)

	fmt.Printf("=== Importing %d roster entries from %s ===\n", ros.Len(), path)

	res, err := participantService.ImportRoster(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	for _, e := range res.Errors {
		fmt.Printf("  ! %s: %s\n", e.Name, e.Error)
	}
	fmt.Printf("Imported: %d, skipped: %d, errors: %d\n", res.Imported, res.Skipped, len(res.Errors))
}
