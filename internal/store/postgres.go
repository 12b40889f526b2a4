package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Gateway and worker both start here; only the lock holder runs DDL.
	const lockID = 730214551

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			arxiv_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			authors TEXT[] NOT NULL DEFAULT '{}',
			file_name TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			status TEXT NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			paper_id UUID PRIMARY KEY REFERENCES papers(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			chunks INT NOT NULL DEFAULT 0,
			formatted BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS papers_created_at_idx ON papers (created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreatePaper(ctx context.Context, p Paper) (Paper, error) {
	p = newPaper(p)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO papers(id, source, arxiv_id, title, authors, file_name, content, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Source, p.ArxivID, p.Title, pq.Array(authorsOrEmpty(p.Authors)), p.FileName, p.Content, p.Status, p.CreatedAt)
	if err != nil {
		return Paper{}, fmt.Errorf("failed to insert paper: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPaper(ctx context.Context, id uuid.UUID) (Paper, error) {
	p := Paper{ID: id}
	row := s.db.QueryRowContext(ctx, `
		SELECT source, arxiv_id, title, authors, file_name, content, status, last_error, created_at
		FROM papers WHERE id=$1`, id)
	err := row.Scan(&p.Source, &p.ArxivID, &p.Title, pq.Array(&p.Authors), &p.FileName, &p.Content, &p.Status, &p.LastError, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Paper{}, ErrPaperNotFound
		}
		return Paper{}, fmt.Errorf("failed to get paper %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) UpdatePaperStatus(ctx context.Context, id uuid.UUID, status PaperStatus, lastError string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE papers SET status=$1, last_error=$2 WHERE id=$3`, status, lastError, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaperNotFound
	}
	return nil
}

func (s *PostgresStore) SaveSummary(ctx context.Context, sum Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries(paper_id, text, provider, model, chunks, formatted, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (paper_id) DO UPDATE SET
			text=excluded.text, provider=excluded.provider, model=excluded.model,
			chunks=excluded.chunks, formatted=excluded.formatted, created_at=excluded.created_at`,
		sum.PaperID, sum.Text, sum.Provider, sum.Model, sum.Chunks, sum.Formatted, summaryTime(sum))
	return err
}

func (s *PostgresStore) GetSummary(ctx context.Context, paperID uuid.UUID) (Summary, error) {
	sum := Summary{PaperID: paperID}
	row := s.db.QueryRowContext(ctx, `
		SELECT text, provider, model, chunks, formatted, created_at FROM summaries WHERE paper_id=$1`, paperID)
	if err := row.Scan(&sum.Text, &sum.Provider, &sum.Model, &sum.Chunks, &sum.Formatted, &sum.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrSummaryNotFound
		}
		return Summary{}, fmt.Errorf("failed to get summary for paper %s: %w", paperID, err)
	}
	return sum, nil
}

// PrunePapers deletes papers created before the cutoff; summaries go with them.
func (s *PostgresStore) PrunePapers(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func authorsOrEmpty(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return items
}

func summaryTime(sum Summary) time.Time {
	if sum.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return sum.CreatedAt
}
