// Command papersum summarizes papers from the command line.
//
// Usage:
//
//	papersum summarize paper.pdf --out summaries/
//	papersum arxiv 1706.03762 --provider openai
//	papersum translate-demo
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"papersum/internal/app"
	"papersum/internal/config"
	"papersum/internal/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Summarize     SummarizeCmd     `cmd:"" help:"Summarize a local TXT, PDF or HTML file."`
	Arxiv         ArxivCmd         `cmd:"" help:"Fetch an arXiv paper through the MCP bridge and summarize it."`
	TranslateDemo TranslateDemoCmd `cmd:"" name:"translate-demo" help:"Run the canned translation demo."`
	Providers     ProvidersCmd     `cmd:"" help:"List configured summarization providers."`

	Provider string `short:"p" help:"Summarization provider (gemini, openai, local). Defaults to LLM_PROVIDER."`
	MaxChars int    `name:"max-chars" help:"Characters per summarizer call (defaults to MAX_CHARS)."`
	Out      string `short:"o" help:"Directory for output files." default:"." type:"path"`
	Stdout   bool   `help:"Print results to stdout instead of writing files."`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn"`
}

// runtime is bound into every command's Run.
type runtime struct {
	ctx context.Context
	cfg config.Config
	log *slog.Logger
	out io.Writer
}

func (rt *runtime) core(cli *CLI) (app.Deps, error) {
	cfg := rt.cfg
	if cli.MaxChars > 0 {
		cfg.MaxChars = cli.MaxChars
	}
	return app.BuildCore(rt.ctx, cfg, rt.log)
}

func main() {
	if err := app.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("papersum"),
		kong.Description("Summarize research papers with Gemini, OpenAI or a local model."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := &runtime{
		ctx: ctx,
		cfg: config.Load(),
		log: logger.NewWithWriter(os.Stderr, cli.LogLevel),
		out: os.Stdout,
	}
	err := kctx.Run(&cli, rt)
	kctx.FatalIfErrorf(err)
}
