package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"papersum/internal/app"
	"papersum/internal/llm"
	"papersum/internal/metrics"
	"papersum/internal/queue"
	"papersum/internal/store"
	"papersum/internal/summary"
)

func newTestDeps(t *testing.T, st store.Store, client *llm.MockClient) app.Deps {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := llm.NewRegistry(client.Name(), client)
	require.NoError(t, err)
	return app.Deps{
		Store:      st,
		Log:        log,
		Metrics:    metrics.New(),
		Summarizer: summary.NewService(log, reg, summary.WithMaxChars(100)),
	}
}

func summarizeTask(t *testing.T, id uuid.UUID, provider string) queue.Task {
	t.Helper()
	task, err := queue.NewSummarizeTask(id, provider)
	require.NoError(t, err)
	return task
}

func TestHandleSummarize(t *testing.T) {
	paperID := uuid.New()
	paper := store.Paper{ID: paperID, Content: "paper body", Status: store.StatusProcessing}

	tests := []struct {
		name          string
		attempts      int
		setup         func(*store.MockStore, *llm.MockClient)
		wantErr       bool
		wantPermanent bool
	}{
		{
			name: "summary saved and paper marked ready",
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("the summary", nil).Once()
				s.On("SaveSummary", mock.Anything, mock.MatchedBy(func(sum store.Summary) bool {
					return sum.PaperID == paperID && sum.Text == "the summary" && sum.Provider == "mock"
				})).Return(nil).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusReady, "").Return(nil).Once()
			},
		},
		{
			name: "missing paper is permanent",
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(store.Paper{}, store.ErrPaperNotFound).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name: "store outage is retried",
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(store.Paper{}, errors.New("connection reset")).Once()
			},
			wantErr: true,
		},
		{
			name:     "store outage on last attempt marks paper failed",
			attempts: 2,
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(store.Paper{}, errors.New("connection reset")).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusFailed, summary.GenericFailure.Message()).Return(nil).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name: "save failure is retried while attempts remain",
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("the summary", nil).Once()
				s.On("SaveSummary", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
			},
			wantErr: true,
		},
		{
			name:     "save failure on last attempt marks paper failed",
			attempts: 2,
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("the summary", nil).Once()
				s.On("SaveSummary", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusFailed, summary.GenericFailure.Message()).Return(nil).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:     "ready update failure on last attempt marks paper failed",
			attempts: 2,
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("the summary", nil).Once()
				s.On("SaveSummary", mock.Anything, mock.Anything).Return(nil).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusReady, "").Return(errors.New("db down")).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusFailed, summary.GenericFailure.Message()).Return(nil).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name: "quota failure marks paper failed without retry",
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("", errors.New("429 RESOURCE_EXHAUSTED: quota")).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusFailed, summary.QuotaExceeded.Message()).Return(nil).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name: "invalid key marks paper failed without retry",
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("", errors.New("API key not valid")).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusFailed, summary.InvalidCredential.Message()).Return(nil).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name: "generic failure is retried while attempts remain",
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("", errors.New("upstream timeout")).Once()
			},
			wantErr: true,
		},
		{
			name:     "generic failure on last attempt marks paper failed",
			attempts: 2,
			setup: func(s *store.MockStore, c *llm.MockClient) {
				s.On("GetPaper", mock.Anything, paperID).Return(paper, nil).Once()
				c.On("Summarize", mock.Anything, "paper body").Return("", errors.New("upstream timeout")).Once()
				s.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusFailed, summary.GenericFailure.Message()).Return(nil).Once()
			},
			wantErr:       true,
			wantPermanent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(store.MockStore)
			client := new(llm.MockClient)
			tt.setup(st, client)

			task := summarizeTask(t, paperID, "")
			task.Attempts = tt.attempts
			err := handleSummarize(context.Background(), newTestDeps(t, st, client), task)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantPermanent, errors.Is(err, queue.ErrPermanent))
			} else {
				require.NoError(t, err)
			}
			st.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestHandleSummarizeUnknownProvider(t *testing.T) {
	paperID := uuid.New()
	st := new(store.MockStore)
	st.On("GetPaper", mock.Anything, paperID).Return(store.Paper{ID: paperID, Content: "text"}, nil).Once()
	st.On("UpdatePaperStatus", mock.Anything, paperID, store.StatusFailed, mock.AnythingOfType("string")).Return(nil).Once()

	err := handleSummarize(context.Background(), newTestDeps(t, st, new(llm.MockClient)), summarizeTask(t, paperID, "claude"))
	assert.ErrorIs(t, err, queue.ErrPermanent)
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	st.AssertExpectations(t)
}

func TestHandleSummarizeBadPayload(t *testing.T) {
	st := new(store.MockStore)
	err := handleSummarize(context.Background(), newTestDeps(t, st, new(llm.MockClient)), queue.Task{Type: queue.TaskTypeSummarize, Payload: []byte("{")})
	assert.ErrorIs(t, err, queue.ErrPermanent)
	st.AssertNotCalled(t, "GetPaper", mock.Anything, mock.Anything)
}
