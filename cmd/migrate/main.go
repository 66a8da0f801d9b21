package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"manuscript-pipeline/internal/config"
	pg "manuscript-pipeline/internal/infra/db/postgres"
	"manuscript-pipeline/internal/infra/logging"
)

// migrate applies the embedded goose migrations.
//
//	migrate -config config.yaml up|down|reset|status|version
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, command, logger); err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("migrate failed")
	}
	logger.Info().Str("command", command).Msg("migrate done")
}
