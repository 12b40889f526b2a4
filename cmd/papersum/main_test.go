package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papersum/internal/config"
	"papersum/internal/llm"
	"papersum/internal/translate"
)

// localSummarizer answers every call with "S<n>" and counts calls.
func localSummarizer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if status != http.StatusOK {
			http.Error(w, "Invalid API key", status)
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"summary": "S" + string(rune('0'+n))})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newRuntime(url string) (*runtime, *bytes.Buffer) {
	var out bytes.Buffer
	return &runtime{
		ctx: context.Background(),
		cfg: config.Config{
			LLMProvider:        llm.ProviderLocal,
			LocalSummarizerURL: url,
			CacheProvider:      "none",
			MaxChars:           1000,
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		out: &out,
	}, &out
}

func TestSummarizeCmdWritesMarkdown(t *testing.T) {
	srv, calls := localSummarizer(t, http.StatusOK)
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(input, []byte(strings.Repeat("a", 25)), 0o644))

	rt, out := newRuntime(srv.URL)
	cli := &CLI{Out: filepath.Join(dir, "out"), MaxChars: 10}

	require.NoError(t, (&SummarizeCmd{File: input}).Run(cli, rt))

	// 25 chars at 10 per call: three chunks plus the reduction.
	assert.Equal(t, int32(4), calls.Load())
	written, err := os.ReadFile(filepath.Join(dir, "out", "notes_summary.md"))
	require.NoError(t, err)
	assert.Equal(t, "S4", string(written))
	assert.Contains(t, out.String(), "notes_summary.md")
}

func TestSummarizeCmdStdout(t *testing.T) {
	srv, _ := localSummarizer(t, http.StatusOK)
	input := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(input, []byte("short text"), 0o644))

	rt, out := newRuntime(srv.URL)
	require.NoError(t, (&SummarizeCmd{File: input}).Run(&CLI{Stdout: true}, rt))
	assert.Equal(t, "S1\n", out.String())
}

func TestSummarizeCmdClassifiesFailure(t *testing.T) {
	srv, _ := localSummarizer(t, http.StatusUnauthorized)
	input := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(input, []byte("short text"), 0o644))

	rt, _ := newRuntime(srv.URL)
	err := (&SummarizeCmd{File: input}).Run(&CLI{Stdout: true}, rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "The API key is invalid")
}

func TestSummarizeCmdRejectsUnsupportedFile(t *testing.T) {
	input := filepath.Join(t.TempDir(), "slides.pptx")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	rt, _ := newRuntime("http://unused")
	assert.Error(t, (&SummarizeCmd{File: input}).Run(&CLI{}, rt))
}

func TestArxivCmdRejectsBadID(t *testing.T) {
	rt, _ := newRuntime("http://unused")
	assert.Error(t, (&ArxivCmd{ID: "not-an-id"}).Run(&CLI{}, rt))
}

func TestProvidersCmd(t *testing.T) {
	rt, out := newRuntime("http://unused")
	require.NoError(t, (&ProvidersCmd{}).Run(&CLI{}, rt))
	assert.Equal(t, "* local\n", out.String())
}

func TestTranslateDemoCmdExport(t *testing.T) {
	dir := t.TempDir()
	rt, out := newRuntime("http://unused")

	require.NoError(t, (&TranslateDemoCmd{Name: "demo"}).Run(&CLI{Out: dir}, rt))
	assert.Contains(t, out.String(), "[8/8] 7. Conclusion (100%)")

	written, err := os.ReadFile(filepath.Join(dir, "demo_translated.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "Abstract\n本論文では")
	assert.Contains(t, string(written), translate.FallbackPrefix+"We have presented")
}

func TestTranslateDemoCmdPausedWritesPartial(t *testing.T) {
	dir := t.TempDir()
	rt, out := newRuntime("http://unused")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt.ctx = ctx

	require.NoError(t, (&TranslateDemoCmd{Name: "paper"}).Run(&CLI{Out: dir}, rt))
	assert.Contains(t, out.String(), "paused after 0 sections")

	written, err := os.ReadFile(filepath.Join(dir, "paper_translated.txt"))
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(string(written), "[未翻訳]"))
}

func TestTranslateDemoCmdSingleSection(t *testing.T) {
	rt, out := newRuntime("http://unused")
	require.NoError(t, (&TranslateDemoCmd{Section: 2}).Run(&CLI{}, rt))
	assert.True(t, strings.HasPrefix(out.String(), "1. Introduction\n機械学習は"))
}
