// Command inkreader is a pagination visualiser: an external demo, not part
// of the core engine, that opens an EPUB, paginates one chapter through the
// render engine and writes each page as a PGM frame. A single entry point
// threads a *zap.Logger and a cancellable context through urfave/cli/v3,
// with failures aggregated via go.uber.org/multierr rather than panicking.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/h0rv/epub-stream-sub001/book"
	"github.com/h0rv/epub-stream-sub001/config"
	"github.com/h0rv/epub-stream-sub001/render"
	"github.com/h0rv/epub-stream-sub001/state"
)

func main() {
	cmd := buildCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		if !errWasHandled {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// errWasHandled suppresses main's own printing of the error cmd.Run
// returns once exitErrHandler has already logged it through zap.
var errWasHandled bool

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "inkreader",
		Usage: "paginate one EPUB chapter and write PGM page frames",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to an EngineConfig YAML file"},
			&cli.IntFlag{Name: "chapter", Aliases: []string{"n"}, Value: 0, Usage: "spine index of the chapter to paginate"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "directory to write page-NNNN.pgm frames into"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug-level console logging"},
			&cli.BoolFlag{Name: "embedded", Usage: "use the embedded e-paper profile instead of the desktop default"},
			&cli.IntFlag{Name: "width", Value: 480, Usage: "display width in pixels"},
			&cli.IntFlag{Name: "height", Value: 800, Usage: "display height in pixels"},
		},
		Before:         initializeAppContext,
		After:          destroyAppContext,
		ExitErrHandler: exitErrHandler,
		Action:         runPaginate,
	}
}

func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	ctx = state.ContextWithEnv(ctx)
	env := state.EnvFromContext(ctx)

	var err error
	if configFile := cmd.String("config"); configFile != "" {
		if env.Cfg, err = config.Load(configFile); err != nil {
			return ctx, fmt.Errorf("unable to load configuration: %w", err)
		}
	} else if cmd.Bool("embedded") {
		env.Cfg = config.Embedded()
	} else {
		env.Cfg = config.Default()
	}

	if cmd.Bool("debug") {
		env.Cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if env.Log, err = env.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("program started", zap.Strings("args", os.Args))
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Debug("program ended", zap.Duration("elapsed", env.Uptime()))
	}
	env.RestoreStdLog()
	return nil
}

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Error("program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func runPaginate(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	args := cmd.Args()
	if args.Len() == 0 {
		return cli.Exit("usage: inkreader [flags] <book.epub>", 1)
	}
	if args.Len() > 1 {
		env.Log.Warn("too many arguments, ignoring", zap.Strings("ignoring", args.Slice()[1:]))
	}
	path := args.Get(0)
	chapter := int(cmd.Int("chapter"))
	outDir := cmd.String("out")

	b, err := book.Open(path, book.Options{
		Memory:     env.Cfg.Memory,
		Metadata:   env.Cfg.Metadata,
		Navigation: env.Cfg.Navigation,
		Images:     env.Cfg.Images,
		Log:        env.Log,
	})
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			env.Log.Warn("closing book", zap.Error(cerr))
		}
	}()

	rcfg := render.NewEngineOptionsForDisplay(int(cmd.Int("width")), int(cmd.Int("height")))
	rcfg.Layout.Justification.Strategy = env.Cfg.Layout.Justification
	rcfg.Layout.Hyphenation = env.Cfg.Layout.Hyphenation
	rcfg.Layout.WidowOrphanLines = env.Cfg.Layout.WidowOrphanLines
	rcfg.Layout.Objects.CoverPage = env.Cfg.Layout.CoverPage
	rcfg.PageChrome = env.Cfg.PageChrome
	rcfg.RenderIntent = env.Cfg.RenderIntent
	rcfg.Memory = env.Cfg.Memory
	rcfg.Embedded = env.Cfg.Embedded
	rcfg.Log = env.Log

	pages, err := render.PrepareChapterWithConfigCollect(b, chapter, rcfg)
	if err != nil {
		return fmt.Errorf("paginating chapter %d: %w", chapter, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", outDir, err)
	}

	if b.IsCoverChapter(chapter) {
		if err := writeCoverImage(outDir, b, env.Cfg); err != nil {
			env.Log.Warn("writing cover image", zap.Error(err))
		}
	}

	var writeErr error
	for i, p := range pages {
		fname := filepath.Join(outDir, fmt.Sprintf("page-%04d.pgm", i))
		if err := writePGM(fname, p, rcfg); err != nil {
			writeErr = multierr.Append(writeErr, fmt.Errorf("writing %s: %w", fname, err))
		}
	}
	if writeErr != nil {
		return writeErr
	}

	env.Log.Info("wrote pages", zap.Int("count", len(pages)), zap.String("dir", outDir))
	return nil
}
