// Package translate serves the canned translation demo. It never calls a real
// translation engine.
package translate

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// FallbackPrefix marks sections with no canned translation.
const FallbackPrefix = "[翻訳済み] "

const untranslated = "[未翻訳]"

var ErrSectionNotFound = errors.New("section not found")

type Section struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Type        string `yaml:"type" json:"type"`
	Content     string `yaml:"content" json:"content"`
	Translation string `yaml:"translation,omitempty" json:"-"`
}

type Result struct {
	Section    Section `json:"section"`
	Translated string  `json:"translated"`
}

type Translator struct {
	sections []Section
	minDelay time.Duration
	maxDelay time.Duration
}

// NewDemo loads the embedded sample paper.
func NewDemo(minDelay, maxDelay time.Duration) (*Translator, error) {
	var doc struct {
		Sections []Section `yaml:"sections"`
	}
	if err := yaml.Unmarshal(demoYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse demo sections: %w", err)
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Translator{sections: doc.Sections, minDelay: minDelay, maxDelay: maxDelay}, nil
}

func (t *Translator) Sections() []Section {
	out := make([]Section, len(t.sections))
	copy(out, t.sections)
	return out
}

func (t *Translator) Section(id int) (Section, error) {
	for _, s := range t.sections {
		if s.ID == id {
			return s, nil
		}
	}
	return Section{}, ErrSectionNotFound
}

// Translate waits the simulated latency, then returns the canned translation.
// Cancelling ctx pauses the run and returns ctx.Err().
func (t *Translator) Translate(ctx context.Context, id int) (Result, error) {
	s, err := t.Section(id)
	if err != nil {
		return Result{}, err
	}
	if d := t.delay(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	out := s.Translation
	if out == "" {
		out = FallbackPrefix + s.Content
	}
	return Result{Section: s, Translated: out}, nil
}

// TranslateAll walks sections in order, reporting each result to progress.
// On cancellation it returns what finished so far along with ctx.Err().
func (t *Translator) TranslateAll(ctx context.Context, progress func(done, total int, r Result)) ([]Result, error) {
	results := make([]Result, 0, len(t.sections))
	for i, s := range t.sections {
		r, err := t.Translate(ctx, s.ID)
		if err != nil {
			return results, err
		}
		results = append(results, r)
		if progress != nil {
			progress(i+1, len(t.sections), r)
		}
	}
	return results, nil
}

// Export renders sections as plain text; missing results are marked untranslated.
func (t *Translator) Export(results []Result) string {
	done := make(map[int]string, len(results))
	for _, r := range results {
		done[r.Section.ID] = r.Translated
	}
	var b strings.Builder
	for _, s := range t.sections {
		text, ok := done[s.ID]
		if !ok {
			text = untranslated
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", s.Title, text)
	}
	return b.String()
}

// ExportName is the download name for a translated document.
func ExportName(base string) string {
	if base == "" {
		base = "paper"
	}
	return base + "_translated.txt"
}

func (t *Translator) delay() time.Duration {
	if t.maxDelay <= t.minDelay {
		return t.minDelay
	}
	return t.minDelay + rand.N(t.maxDelay-t.minDelay)
}
