package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"umnico/internal/pkg/logger"
	"umnico/internal/platform/config"
	"umnico/internal/platform/database"
	"umnico/internal/platform/repositories"
	"umnico/migrations"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	dir := flag.String("dir", "", "Read migrations from this directory instead of the embedded set")
	uniqueIndex := flag.Bool("unique-external-ids", false, "Also install the (source, remote_id) unique index used by hardened linking")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	var source fs.FS = migrations.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	ctx := context.Background()
	applied, err := database.Migrate(ctx, db, source)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	for _, name := range applied {
		log.Info().Str("migration", name).Msg("Applied migration")
	}

	if *uniqueIndex {
		if err := repositories.NewExternalIDRepository(db).EnsureUniqueIndex(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to install unique index")
		}
	}

	fmt.Println("Migration completed successfully")
}
