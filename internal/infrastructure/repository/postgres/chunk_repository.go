package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

// ChunkRepository stores corpus chunks. Ids are assigned by the database in
// insertion order, which is also the order index builds scan in.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// InsertChunks inserts all chunks in one transaction and returns their ids
// in input order.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error) {
	if len(chunks) == 0 {
		return []int64{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ids := make([]int64, 0, len(chunks))
	for _, c := range chunks {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO chunks (title, url, text) VALUES ($1, $2, $3) RETURNING id`,
			c.Title, c.URL, c.Text,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert chunk: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert tx: %w", err)
	}
	return ids, nil
}

func (r *ChunkRepository) GetByID(ctx context.Context, id int64) (*domain.Chunk, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, url, text
FROM chunks
WHERE id = $1
`, id)

	var c domain.Chunk
	if err := row.Scan(&c.ID, &c.Title, &c.URL, &c.Text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrChunkNotFound, "get chunk", fmt.Errorf("id=%d", id))
		}
		return nil, fmt.Errorf("select chunk: %w", err)
	}
	return &c, nil
}

// ListChunks returns every chunk ordered by id.
func (r *ChunkRepository) ListChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, url, text
FROM chunks
ORDER BY id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.Title, &c.URL, &c.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
