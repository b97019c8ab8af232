package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Relocation is the durable trace of one completed copy. It is written
// best-effort after the copy succeeds; a failed write never affects
// acknowledgement of the notification.
type Relocation struct {
	SourceBucket string
	SourceKey    string
	DestBucket   string
	DestKey      string
	Rule         string // "A" (canonical rename) or "B" (fallback)
}

// Store persists relocation records to postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Record inserts one relocation row. Repeat relocations of the same object
// are distinct rows on purpose; redeliveries are part of the audit trail.
func (s *Store) Record(ctx context.Context, r Relocation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO filerelay.relocations (source_bucket, source_key, dest_bucket, dest_key, rule, relocated_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		r.SourceBucket, r.SourceKey, r.DestBucket, r.DestKey, r.Rule,
	)
	if err != nil {
		return fmt.Errorf("insert relocation record: %w", err)
	}
	return nil
}
