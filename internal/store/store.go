package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type PaperStatus string

const (
	StatusPending    PaperStatus = "pending"
	StatusProcessing PaperStatus = "processing"
	StatusReady      PaperStatus = "ready"
	StatusFailed     PaperStatus = "failed"
)

type Source string

const (
	SourceUpload Source = "upload"
	SourceArxiv  Source = "arxiv"
)

var (
	ErrPaperNotFound   = errors.New("paper not found")
	ErrSummaryNotFound = errors.New("summary not found")
)

// Paper is an ingested document. FileName is the base used for downloads.
type Paper struct {
	ID        uuid.UUID
	Source    Source
	ArxivID   string
	Title     string
	Authors   []string
	FileName  string
	Content   string
	Status    PaperStatus
	LastError string
	CreatedAt time.Time
}

// Summary is the final reduced summary of a paper. Partial summaries are never stored.
type Summary struct {
	PaperID   uuid.UUID
	Text      string
	Provider  string
	Model     string
	Chunks    int
	Formatted bool
	CreatedAt time.Time
}

// Store defines the persistence contract shared by the gateway, worker and CLI.
type Store interface {
	CreatePaper(ctx context.Context, p Paper) (Paper, error)
	GetPaper(ctx context.Context, id uuid.UUID) (Paper, error)
	UpdatePaperStatus(ctx context.Context, id uuid.UUID, status PaperStatus, lastError string) error
	SaveSummary(ctx context.Context, s Summary) error
	GetSummary(ctx context.Context, paperID uuid.UUID) (Summary, error)
	PrunePapers(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// newPaper fills in the fields the store owns.
func newPaper(p Paper) Paper {
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.Source == "" {
		p.Source = SourceUpload
	}
	p.CreatedAt = time.Now().UTC()
	return p
}
