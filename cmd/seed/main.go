package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/config"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
	pg "manuscript-pipeline/internal/infra/db/postgres"
	"manuscript-pipeline/internal/infra/logging"
	"manuscript-pipeline/internal/usecase"
)

type mediaList []string

func (m *mediaList) String() string     { return strings.Join(*m, ",") }
func (m *mediaList) Set(v string) error { *m = append(*m, v); return nil }

// seed attaches media to a target and enqueues it, the way an upload
// finalizer would. Each -media flag is KIND=URL[;mime], e.g.
//
//	seed -target post-1 -media IMAGE=https://cdn/p1.jpg -media IMAGE=https://cdn/p2.pdf
func main() {
	var media mediaList
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	target := flag.String("target", "", "target id to seed")
	noEnqueue := flag.Bool("no-enqueue", false, "only insert media rows")
	flag.Var(&media, "media", "KIND=URL[;mime] (repeatable)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)
	if *target == "" || len(media) == 0 {
		logger.Fatal().Msg("usage: seed -target ID -media KIND=URL [-media ...]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	mediaRepo := pg.NewMediaRepo(pool)
	for i, raw := range media {
		m, err := parseMedia(*target, raw, i)
		if err != nil {
			logger.Fatal().Err(err).Str("media", raw).Msg("bad -media value")
		}
		if err := mediaRepo.Add(ctx, nil, m); err != nil {
			logger.Fatal().Err(err).Msg("insert media")
		}
		fmt.Printf("seeded: %s %s (id=%s)\n", m.Kind, m.URL, m.ID)
	}
	if *noEnqueue {
		return
	}

	job, err := enqueue(ctx, cfg, pool, mediaRepo, *target, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("enqueue")
	}
	fmt.Printf("enqueued: %s job=%s generation=%s\n", job.Type, job.ID, job.Generation)
}

func parseMedia(target, raw string, pos int) (*model.Media, error) {
	kind, rest, ok := strings.Cut(raw, "=")
	if !ok || rest == "" {
		return nil, fmt.Errorf("expected KIND=URL")
	}
	url, mime, _ := strings.Cut(rest, ";")
	k := model.MediaKind(strings.ToUpper(kind))
	switch k {
	case model.MediaImage, model.MediaAudio, model.MediaVideo:
	default:
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}
	return &model.Media{TargetID: target, Kind: k, URL: url, MimeType: mime, Position: pos}, nil
}

func enqueue(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, mediaRepo repository.MediaRepository, target string, logger *zerolog.Logger) (*model.Job, error) {
	tm := pg.NewTxManager(pool)
	jobs := pg.NewJobRepo(pool, tm)
	records := pg.NewProcessingRecordRepo(pool)
	queue := usecase.NewQueueUseCase(jobs, records, tm, cfg.Queue.MaxAttempts, cfg.Queue.BackoffUnit, logger)
	return usecase.NewStatusUseCase(records, jobs, mediaRepo, queue, nil, logger).EnqueueFromMedia(ctx, target)
}
