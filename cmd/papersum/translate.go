package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"papersum/internal/translate"
)

// TranslateDemoCmd walks the demo paper section by section. Ctrl-C pauses and
// still writes what was translated so far.
type TranslateDemoCmd struct {
	Section int    `help:"Translate only this section ID."`
	Name    string `help:"Base name for the exported file." default:"paper"`
}

func (c *TranslateDemoCmd) Run(cli *CLI, rt *runtime) error {
	tr, err := translate.NewDemo(rt.cfg.TranslateMinDelay, rt.cfg.TranslateMaxDelay)
	if err != nil {
		return err
	}

	if c.Section > 0 {
		res, err := tr.Translate(rt.ctx, c.Section)
		if err != nil {
			return err
		}
		fmt.Fprintf(rt.out, "%s\n%s\n", res.Section.Title, res.Translated)
		return nil
	}

	results, err := tr.TranslateAll(rt.ctx, func(done, total int, r translate.Result) {
		fmt.Fprintf(rt.out, "[%d/%d] %s (%d%%)\n", done, total, r.Section.Title, done*100/total)
	})
	if err != nil && !errors.Is(err, rt.ctx.Err()) {
		return err
	}
	if err != nil {
		fmt.Fprintf(rt.out, "paused after %d sections\n", len(results))
	}

	text := tr.Export(results)
	if cli.Stdout {
		_, err := fmt.Fprint(rt.out, text)
		return err
	}
	if err := os.MkdirAll(cli.Out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cli.Out, translate.ExportName(c.Name))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write translation: %w", err)
	}
	fmt.Fprintf(rt.out, "Translation written to %s\n", path)
	return nil
}
