package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/config"
	"manuscript-pipeline/internal/infra/api"
	"manuscript-pipeline/internal/infra/logging"
)

// trigger calls the dispatch endpoint the way an external cron would, or
// mints a collaborator token for manual API calls.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "use auth.dev_secret when no dispatch secret is set")
	baseURL := flag.String("url", "http://localhost:8080", "pipeline base URL")
	every := flag.Duration("every", 0, "repeat on this interval until interrupted (0 = once)")
	mint := flag.String("mint-token", "", "print a collaborator JWT for this subject and exit")
	ttl := flag.Duration("ttl", time.Hour, "lifetime of a minted token")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	if *mint != "" {
		tok, err := api.NewAuthManager(cfg.Auth, *devMode).Mint(*mint, *ttl)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(tok)
		return
	}

	secret := cfg.Auth.DispatchSecret
	if secret == "" && *devMode {
		secret = cfg.Auth.DevSecret
	}
	if secret == "" {
		logger.Fatal().Msg("no dispatch secret: set auth.dispatch_secret (or auth.dev_secret with -dev)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: cfg.Pipeline.InvocationTimeout + 30*time.Second}
	endpoint := strings.TrimRight(*baseURL, "/") + "/api/v1/dispatch"

	for {
		if err := dispatch(ctx, client, endpoint, secret, logger); err != nil {
			logger.Error().Err(err).Msg("dispatch")
		}
		if *every <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*every):
		}
	}
}

func dispatch(ctx context.Context, client *http.Client, endpoint, secret string, logger *zerolog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	logger.Info().Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("dispatch")
	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}
