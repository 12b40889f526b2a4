package translate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstant(t *testing.T) *Translator {
	t.Helper()
	tr, err := NewDemo(0, 0)
	require.NoError(t, err)
	return tr
}

func TestDemoSections(t *testing.T) {
	tr := newInstant(t)
	sections := tr.Sections()
	require.Len(t, sections, 8)
	assert.Equal(t, "Abstract", sections[0].Title)
	assert.Equal(t, "abstract", sections[0].Type)
	assert.Equal(t, "conclusion", sections[7].Type)
	for i, s := range sections {
		assert.Equal(t, i+1, s.ID)
		assert.NotEmpty(t, s.Content)
	}
}

func TestTranslateCanned(t *testing.T) {
	tr := newInstant(t)
	r, err := tr.Translate(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.Translated, "本論文では"))
}

func TestTranslateFallback(t *testing.T) {
	tr := newInstant(t)
	r, err := tr.Translate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, FallbackPrefix+r.Section.Content, r.Translated)
}

func TestTranslateUnknownSection(t *testing.T) {
	tr := newInstant(t)
	_, err := tr.Translate(context.Background(), 42)
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestTranslateHonorsCancellation(t *testing.T) {
	tr, err := NewDemo(time.Hour, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Translate(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTranslateAllReportsProgress(t *testing.T) {
	tr := newInstant(t)
	var seen []int
	results, err := tr.TranslateAll(context.Background(), func(done, total int, r Result) {
		assert.Equal(t, 8, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, seen)
}

func TestExportMarksUntranslated(t *testing.T) {
	tr := newInstant(t)
	r, err := tr.Translate(context.Background(), 2)
	require.NoError(t, err)

	out := tr.Export([]Result{r})
	assert.Contains(t, out, "1. Introduction\n機械学習は")
	assert.Contains(t, out, "Abstract\n[未翻訳]\n\n")
	assert.Equal(t, "paper_translated.txt", ExportName(""))
	assert.Equal(t, "notes_translated.txt", ExportName("notes"))
}

func TestDelayBounds(t *testing.T) {
	tr := &Translator{minDelay: 10 * time.Millisecond, maxDelay: 20 * time.Millisecond}
	for i := 0; i < 50; i++ {
		d := tr.delay()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}
}
