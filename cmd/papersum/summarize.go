package main

import (
	"fmt"
	"os"
	"strings"

	"papersum/internal/arxiv"
	"papersum/internal/markdown"
	"papersum/internal/paper"
	"papersum/internal/summary"
)

// SummarizeCmd summarizes a local file.
type SummarizeCmd struct {
	File string `arg:"" help:"Paper to summarize (.txt, .pdf, .html)." type:"existingfile"`
}

func (c *SummarizeCmd) Run(cli *CLI, rt *runtime) error {
	content, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}
	f, err := paper.Extract(c.File, "", content)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	return summarizeAndWrite(cli, rt, f.Text, f.BaseName)
}

// ArxivCmd fetches a paper by ID or URL and summarizes it.
type ArxivCmd struct {
	ID string `arg:"" help:"arXiv ID or URL, e.g. 1706.03762 or https://arxiv.org/abs/1706.03762."`
}

func (c *ArxivCmd) Run(cli *CLI, rt *runtime) error {
	id, err := arxiv.NormalizeID(c.ID)
	if err != nil {
		return fmt.Errorf("%q: %w", c.ID, err)
	}
	deps, err := rt.core(cli)
	if err != nil {
		return err
	}
	defer deps.Close()

	content, err := deps.Arxiv.FetchContent(rt.ctx, id)
	if err != nil {
		return err
	}
	if meta, err := deps.Arxiv.FetchMetadata(rt.ctx, id); err != nil {
		rt.log.Warn("arXiv metadata unavailable", "arxiv_id", id, "err", err)
	} else {
		fmt.Fprintf(rt.out, "%s\n%s\n\n", meta.Title, strings.Join(meta.Authors, ", "))
	}
	return summarizeWith(deps.Summarizer, cli, rt, content, strings.ReplaceAll(id, "/", "_")+"_summary")
}

func summarizeAndWrite(cli *CLI, rt *runtime, text, base string) error {
	deps, err := rt.core(cli)
	if err != nil {
		return err
	}
	defer deps.Close()
	return summarizeWith(deps.Summarizer, cli, rt, text, base)
}

func summarizeWith(svc *summary.Service, cli *CLI, rt *runtime, text, base string) error {
	res, err := svc.Summarize(rt.ctx, summary.Request{Provider: cli.Provider, Text: text})
	if err != nil {
		if ctxErr := rt.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s (%w)", summary.Classify(err).Message(), err)
	}
	rt.log.Info("summary ready", "provider", res.Provider, "model", res.Model, "chunks", res.Chunks, "calls", res.Calls)

	if cli.Stdout {
		_, err := fmt.Fprintln(rt.out, res.Text)
		return err
	}
	path, err := markdown.WriteFile(cli.Out, base, res.Text)
	if err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "Summary written to %s (%s, %d calls)\n", path, res.Provider, res.Calls)
	return nil
}

// ProvidersCmd lists the providers available with the current credentials.
type ProvidersCmd struct{}

func (c *ProvidersCmd) Run(cli *CLI, rt *runtime) error {
	deps, err := rt.core(cli)
	if err != nil {
		return err
	}
	defer deps.Close()

	reg := deps.Summarizer.Providers()
	for _, name := range reg.Names() {
		marker := " "
		if name == reg.Default() {
			marker = "*"
		}
		fmt.Fprintf(rt.out, "%s %s\n", marker, name)
	}
	return nil
}
