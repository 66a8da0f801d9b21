package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
)

var _ repository.MediaRepository = (*mediaRepo)(nil)

type mediaRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRepo(pool *pgxpool.Pool) *mediaRepo {
	return &mediaRepo{pool: pool}
}

func (r *mediaRepo) ListByTarget(ctx context.Context, tx repository.Tx, targetID string) ([]model.Media, error) {
	const q = `
SELECT id, target_id, kind, url, COALESCE(mime_type, ''), position
FROM media
WHERE target_id = $1
ORDER BY position, created_at`

	rows, err := queryRows(ctx, r.pool, tx, q, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Media
	for rows.Next() {
		var (
			m    model.Media
			kind string
		)
		if err := rows.Scan(&m.ID, &m.TargetID, &kind, &m.URL, &m.MimeType, &m.Position); err != nil {
			return nil, scanErr(err)
		}
		m.Kind = model.MediaKind(kind)
		out = append(out, m)
	}
	return out, MapError(rows.Err())
}

func (r *mediaRepo) Add(ctx context.Context, tx repository.Tx, m *model.Media) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := ensureTarget(ctx, r.pool, tx, m.TargetID); err != nil {
		return err
	}
	const q = `
INSERT INTO media (id, target_id, kind, url, mime_type, position)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
ON CONFLICT (id) DO UPDATE SET
  kind = EXCLUDED.kind,
  url = EXCLUDED.url,
  mime_type = EXCLUDED.mime_type,
  position = EXCLUDED.position;`

	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.TargetID, string(m.Kind), m.URL, m.MimeType, m.Position)
	return err
}
