package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// SQLiteStore backs the single-binary CLI and small deployments.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateSQLite(ctx, db, path, log); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB, path string, log *slog.Logger) error {
	dbInstance, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create DB instance: %w", err)
	}
	srcInstance, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("create source instance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcInstance, "sqlite3", dbInstance)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	migrateErr := m.Up()
	fields := []any{"path", path}
	if version, dirty, err := m.Version(); err == nil {
		fields = append(fields, "version", version, "dirty", dirty)
	}

	if migrateErr != nil {
		if !errors.Is(migrateErr, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", migrateErr)
		}
		log.DebugContext(ctx, "no migrations to apply", fields...)
		return nil
	}
	log.InfoContext(ctx, "database migrated", fields...)
	return nil
}

func (s *SQLiteStore) CreatePaper(ctx context.Context, p Paper) (Paper, error) {
	p = newPaper(p)
	authors, err := json.Marshal(authorsOrEmpty(p.Authors))
	if err != nil {
		return Paper{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO papers(id, source, arxiv_id, title, authors, file_name, content, status, created_at)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		p.ID.String(), string(p.Source), p.ArxivID, p.Title, string(authors), p.FileName, p.Content, string(p.Status), p.CreatedAt.UnixNano())
	if err != nil {
		return Paper{}, fmt.Errorf("failed to insert paper: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetPaper(ctx context.Context, id uuid.UUID) (Paper, error) {
	var (
		p       = Paper{ID: id}
		authors string
		created int64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT source, arxiv_id, title, authors, file_name, content, status, last_error, created_at
		FROM papers WHERE id=?`, id.String())
	err := row.Scan(&p.Source, &p.ArxivID, &p.Title, &authors, &p.FileName, &p.Content, &p.Status, &p.LastError, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Paper{}, ErrPaperNotFound
		}
		return Paper{}, fmt.Errorf("failed to get paper %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return Paper{}, fmt.Errorf("decode authors for paper %s: %w", id, err)
	}
	if len(p.Authors) == 0 {
		p.Authors = nil
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	return p, nil
}

func (s *SQLiteStore) UpdatePaperStatus(ctx context.Context, id uuid.UUID, status PaperStatus, lastError string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE papers SET status=?, last_error=? WHERE id=?`, string(status), lastError, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaperNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveSummary(ctx context.Context, sum Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries(paper_id, text, provider, model, chunks, formatted, created_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT (paper_id) DO UPDATE SET
			text=excluded.text, provider=excluded.provider, model=excluded.model,
			chunks=excluded.chunks, formatted=excluded.formatted, created_at=excluded.created_at`,
		sum.PaperID.String(), sum.Text, sum.Provider, sum.Model, sum.Chunks, sum.Formatted, summaryTime(sum).UnixNano())
	return err
}

func (s *SQLiteStore) GetSummary(ctx context.Context, paperID uuid.UUID) (Summary, error) {
	var (
		sum     = Summary{PaperID: paperID}
		created int64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT text, provider, model, chunks, formatted, created_at FROM summaries WHERE paper_id=?`, paperID.String())
	if err := row.Scan(&sum.Text, &sum.Provider, &sum.Model, &sum.Chunks, &sum.Formatted, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrSummaryNotFound
		}
		return Summary{}, fmt.Errorf("failed to get summary for paper %s: %w", paperID, err)
	}
	sum.CreatedAt = time.Unix(0, created).UTC()
	return sum, nil
}

func (s *SQLiteStore) PrunePapers(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cutoff := before.UnixNano()
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM summaries WHERE paper_id IN (SELECT id FROM papers WHERE created_at < ?)`, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.InfoContext(ctx, "pruned papers", "count", n, "before", before)
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
