package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/correlation"
)

// CorrelationRepository persists resolved results. The media_id column holds
// a unique constraint, so Insert doubles as the idempotency barrier: the
// database, not the engine, is the authority that prevents double insertion.
type CorrelationRepository struct {
	pool *pgxpool.Pool
}

func NewCorrelationRepository(pool *pgxpool.Pool) *CorrelationRepository {
	return &CorrelationRepository{pool: pool}
}

type executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *CorrelationRepository) executor(ctx context.Context) executor {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *CorrelationRepository) Exists(ctx context.Context, mediaID string) (bool, error) {
	const sql = `SELECT EXISTS (SELECT 1 FROM correlations WHERE media_id = $1)`

	var exists bool
	if err := r.executor(ctx).QueryRow(ctx, sql, mediaID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check correlation exists: %w", err)
	}
	return exists, nil
}

// Insert returns true if the result was saved (is new), false if the media
// id was already known.
func (r *CorrelationRepository) Insert(ctx context.Context, res *correlation.Result) (bool, error) {
	const sql = `
		INSERT INTO correlations (media_id, author, event_timestamp, resolved_code, source, associated_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (media_id) DO NOTHING
	`

	tag, err := r.executor(ctx).Exec(ctx, sql,
		res.MediaID, res.Author, res.Timestamp, res.Code, string(res.Source), nullIfEmptyText(res.AssociatedText))
	if err != nil {
		return false, fmt.Errorf("insert correlation: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *CorrelationRepository) GetByMediaID(ctx context.Context, mediaID string) (*correlation.Result, error) {
	const sql = `
		SELECT media_id, author, event_timestamp, resolved_code, source, COALESCE(associated_text, '')
		FROM correlations
		WHERE media_id = $1
	`

	res := &correlation.Result{}
	err := r.pool.QueryRow(ctx, sql, mediaID).Scan(
		&res.MediaID, &res.Author, &res.Timestamp, &res.Code, &res.Source, &res.AssociatedText,
	)
	if err != nil {
		return nil, fmt.Errorf("get correlation by media id: %w", err)
	}

	return res, nil
}

// ListUnresolved returns the most recent results stuck on the unknown
// sentinel, newest first.
func (r *CorrelationRepository) ListUnresolved(ctx context.Context, limit int) ([]*correlation.Result, error) {
	const sql = `
		SELECT media_id, author, event_timestamp, resolved_code, source, COALESCE(associated_text, '')
		FROM correlations
		WHERE resolved_code = $1
		ORDER BY event_timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, sql, correlation.UnknownCode, limit)
	if err != nil {
		return nil, fmt.Errorf("query unresolved correlations: %w", err)
	}
	defer rows.Close()

	var results []*correlation.Result
	for rows.Next() {
		res := &correlation.Result{}
		if err := rows.Scan(&res.MediaID, &res.Author, &res.Timestamp, &res.Code, &res.Source, &res.AssociatedText); err != nil {
			return nil, fmt.Errorf("scan correlation: %w", err)
		}
		results = append(results, res)
	}

	return results, nil
}

// CountUnresolved returns how many results carry the unknown sentinel.
func (r *CorrelationRepository) CountUnresolved(ctx context.Context) (int64, error) {
	const sql = `SELECT COUNT(*) FROM correlations WHERE resolved_code = $1`

	var n int64
	if err := r.pool.QueryRow(ctx, sql, correlation.UnknownCode).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unresolved correlations: %w", err)
	}
	return n, nil
}

// CountBySource returns how many results each source tag produced.
func (r *CorrelationRepository) CountBySource(ctx context.Context) (map[correlation.Source]int64, error) {
	const sql = `SELECT source, COUNT(*) FROM correlations GROUP BY source`

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("count correlations by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[correlation.Source]int64)
	for rows.Next() {
		var src string
		var n int64
		if err := rows.Scan(&src, &n); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		counts[correlation.Source(src)] = n
	}

	return counts, nil
}

func nullIfEmptyText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
