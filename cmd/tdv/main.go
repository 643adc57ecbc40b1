package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/kraitsura/tdv/pkg/client"
	"github.com/kraitsura/tdv/pkg/config"
	"github.com/kraitsura/tdv/pkg/export"
	"github.com/kraitsura/tdv/pkg/loader"
	"github.com/kraitsura/tdv/pkg/model"
	"github.com/kraitsura/tdv/pkg/report"
	"github.com/kraitsura/tdv/pkg/session"
	"github.com/kraitsura/tdv/pkg/ui"
	"github.com/kraitsura/tdv/pkg/watcher"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

type options struct {
	configPath   string
	endpoint     string
	jsonPath     string
	watch        bool
	debug        bool
	robotSummary bool
	robotRows    bool
	state        string
	health       string
	search       string
	exportHTML   string
	exportPNG    string
	preview      bool
	version      bool
	writeConfig  bool
	dumpPath     string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("tdv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/tdv/config.yaml)")
	fs.StringVar(&o.endpoint, "endpoint", "", "Analyzer base URL (overrides config)")
	fs.StringVar(&o.jsonPath, "json", "", "Load an already-analyzed thread collection (JSON array or JSONL)")
	fs.BoolVar(&o.watch, "watch", false, "Re-analyze the dump file when it changes")
	fs.BoolVar(&o.debug, "debug", false, "Write debug logs (to log_file, or tdv.log in the temp dir)")
	fs.BoolVar(&o.robotSummary, "robot-summary", false, "Print the summary as JSON and exit")
	fs.BoolVar(&o.robotRows, "robot-rows", false, "Print the visible rows as JSON and exit")
	fs.StringVar(&o.state, "state", "", "Filter by thread state (exact, e.g. BLOCKED)")
	fs.StringVar(&o.health, "health", "", "Filter by health (exact, e.g. HOT)")
	fs.StringVar(&o.search, "search", "", "Filter by thread name substring")
	fs.StringVar(&o.exportHTML, "export-html", "", "Write an HTML report to this path and exit")
	fs.StringVar(&o.exportPNG, "export-png", "", "Write the state chart (.png or .svg) to this path and exit")
	fs.BoolVar(&o.preview, "preview", false, "Serve the HTML report locally and open it in a browser")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.BoolVar(&o.writeConfig, "write-config", false, "Save the effective settings to the config file and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tdv [options] [dumpfile]")
		fmt.Fprintln(stderr, "\nA terminal viewer for analyzed JVM thread dumps.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 1 {
		return o, fmt.Errorf("expected at most one dump file, got %d", fs.NArg())
	}
	o.dumpPath = fs.Arg(0)
	return o, nil
}

func (o options) batch() bool {
	return o.robotSummary || o.robotRows || o.exportHTML != "" || o.exportPNG != "" || o.preview
}

func (o options) criteria() report.Criteria {
	return report.Criteria{
		Query:  o.search,
		State:  model.State(o.state),
		Health: model.Health(o.health),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, term.IsTerminal(int(os.Stdout.Fd())))
	stop()
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, interactive bool) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintf(stdout, "tdv version %s\n", version)
		return nil
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		// --write-config may create the file it names
		if !o.writeConfig || !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Default()
	}
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if o.writeConfig {
		path := o.configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if path == "" {
			return errors.New("no config path: pass --config")
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", path)
		return nil
	}

	logger, closeLog, err := newLogger(cfg.LogFile, o.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := client.New(cfg.Endpoint, client.WithTimeout(cfg.Timeout.Std()), client.WithLogger(logger))
	if err != nil {
		return err
	}
	sess := session.New(report.RenderOptions{LockInfoWidth: cfg.LockInfoWidth}, logger)

	if o.batch() || !interactive {
		return runBatch(ctx, o, c, sess, stdout, logger)
	}
	return runTUI(ctx, o, cfg, c, sess, logger)
}

// newLogger returns a file logger when a log file or debug output is
// requested. The terminal belongs to the UI, so nothing is logged to it.
func newLogger(path string, debug bool) (*slog.Logger, func(), error) {
	if path == "" && !debug {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	if path == "" {
		path = filepath.Join(os.TempDir(), "tdv.log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}

// loadInitial fills the session from --json or, failing that, by
// analyzing the dump file synchronously.
func loadInitial(ctx context.Context, o options, c *client.Client, sess *session.Session) error {
	if o.jsonPath != "" {
		threads, err := loader.LoadThreadsFromFile(o.jsonPath)
		if err != nil {
			return err
		}
		return sess.Load(ctx, o.jsonPath, threads)
	}
	if err := sess.Begin(o.dumpPath); err != nil {
		return errors.New("no dump file given (pass a dump file or --json)")
	}
	threads, err := c.Analyze(ctx, o.dumpPath)
	if err != nil {
		sess.Fail(err)
		return errors.New(sess.ErrorMessage())
	}
	return sess.Succeed(ctx, threads)
}

func runBatch(ctx context.Context, o options, c *client.Client, sess *session.Session, stdout io.Writer, logger *slog.Logger) error {
	if err := loadInitial(ctx, o, c, sess); err != nil {
		return err
	}
	rep := sess.Report()
	rep.ApplyFilter(o.criteria())
	now := time.Now()

	htmlOpts := export.HTMLOptions{
		Title:       "Thread Dump Report: " + filepath.Base(sess.Source()),
		Source:      sess.Source(),
		GeneratedAt: now,
		VisibleOnly: !rep.Criteria().IsEmpty(),
	}

	if o.exportHTML != "" {
		if err := export.SaveHTML(o.exportHTML, rep, htmlOpts); err != nil {
			return err
		}
		logger.Info("html report written", "path", o.exportHTML)
		fmt.Fprintf(stdout, "Wrote %s\n", o.exportHTML)
	}
	if o.exportPNG != "" {
		if err := export.SaveSnapshot(export.SnapshotOptions{Path: o.exportPNG, Summary: rep.Summary()}); err != nil {
			return err
		}
		logger.Info("chart written", "path", o.exportPNG)
		fmt.Fprintf(stdout, "Wrote %s\n", o.exportPNG)
	}

	switch {
	case o.robotRows:
		return export.WriteRobotRows(stdout, rep, sess.Source(), now)
	case o.robotSummary, !o.batch():
		return export.WriteRobotSummary(stdout, rep, sess.Source(), now)
	}

	if o.preview {
		dir, err := os.MkdirTemp("", "tdv-preview-")
		if err != nil {
			return fmt.Errorf("create preview dir: %w", err)
		}
		defer os.RemoveAll(dir)
		if _, err := export.WriteBundle(dir, rep, htmlOpts); err != nil {
			return err
		}
		return export.StartPreview(dir, true, logger)
	}
	return nil
}

func runTUI(ctx context.Context, o options, cfg config.Config, c *client.Client, sess *session.Session, logger *slog.Logger) error {
	if o.jsonPath != "" {
		threads, err := loader.LoadThreadsFromFile(o.jsonPath)
		if err != nil {
			return err
		}
		if err := sess.Load(ctx, o.jsonPath, threads); err != nil {
			return err
		}
		if !o.criteria().IsEmpty() {
			sess.Report().ApplyFilter(o.criteria())
		}
	}

	var w *watcher.Watcher
	if o.watch {
		if o.dumpPath == "" {
			return errors.New("--watch needs a dump file")
		}
		var err error
		w, err = watcher.NewWatcher(o.dumpPath,
			watcher.WithDebounceDuration(cfg.WatchDebounce.Std()),
			watcher.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
	}

	err := ui.Run(ui.Options{
		Analyzer:    c,
		Session:     sess,
		Theme:       ui.DefaultTheme(nil, cfg.Theme),
		Watcher:     w,
		InitialPath: o.dumpPath,
		Endpoint:    c.Endpoint(),
		Context:     ctx,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
