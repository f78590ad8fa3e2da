package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/config"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/history"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/logging"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/output"
)

// exitInterrupted is the status used when a run is cancelled by a signal.
const exitInterrupted = 130

// runCheck is the root command handler: generate or verify, then report.
func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	root := cfg.Root
	if len(args) > 0 {
		root = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{
		cfg:    cfg,
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  os.Stdin,
	}
	return r.run(ctx, root)
}

// runner executes one check with explicit streams.
type runner struct {
	cfg    *config.Config
	stdout io.Writer
	stderr *os.File
	stdin  *os.File
}

func (r *runner) run(ctx context.Context, root string) error {
	logger := logging.Get("cli")

	root, err := config.ExpandPath(root)
	if err != nil {
		return err
	}

	bufSize, err := r.cfg.BufferBytes()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(r.cfg.Output, r.cfg.Template)
	if err != nil {
		return err
	}
	status := r.statusWriter()

	prog := newProgressReporter(r.stderr, r.cfg.Progress && !r.cfg.Quiet)

	c, err := checker.New(checker.Options{
		Root:         root,
		ManifestPath: r.cfg.ManifestPath(),
		Exclude:      r.cfg.Exclude,
		Workers:      r.cfg.Workers,
		BufferSize:   bufSize,
		OnEvent:      prog.Handle,
	})
	if err != nil {
		return err
	}

	mode, err := c.SelectMode()
	if err != nil {
		return err
	}

	name := (&output.Result{Manifest: c.ManifestPath()}).ManifestName()
	if mode == checker.ModeGenerate {
		fmt.Fprintf(status, "%s not found, hashing files...\n", name)
	} else {
		fmt.Fprintf(status, "Found %s, verifying hashes...\n", name)
	}
	logger.Info("Run started", "mode", mode, "root", root, "workers", c.Workers())

	report, err := c.RunMode(ctx, mode)
	prog.Finish()
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			r.recordHistory(&history.Record{
				Mode:        mode.String(),
				Root:        root,
				Manifest:    c.ManifestPath(),
				Interrupted: true,
			})
			fmt.Fprintln(r.stderr, "Interrupted, no changes written.")
			return &exitError{code: exitInterrupted}
		}
		return err
	}

	result := output.FromReport(root, report)
	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if _, err := r.stdout.Write(buf.Bytes()); err != nil {
		return err
	}

	r.recordHistory(history.NewRecord(root, report))

	// Quiet runs have no visible prompt, so they never wait.
	if r.cfg.Pause && !r.cfg.Quiet {
		if err := waitForKey(r.stdin, status); err != nil {
			logger.Debug("Pause failed", "error", err)
		}
	}

	if report.HasErrors() {
		return &exitError{code: 1}
	}
	return nil
}

// statusWriter returns where progress lines go: stdout for the text
// formats, stderr for machine-readable ones, nowhere when quiet.
func (r *runner) statusWriter() io.Writer {
	switch {
	case r.cfg.Quiet:
		return io.Discard
	case output.IsText(r.cfg.Output):
		return r.stdout
	default:
		return r.stderr
	}
}

// recordHistory stores rec when history is enabled. Failures are logged and
// never change the run's outcome.
func (r *runner) recordHistory(rec *history.Record) {
	if !r.cfg.History.Enabled {
		return
	}
	logger := logging.Get("history")

	store, err := history.Open(r.cfg.HistoryPath())
	if err != nil {
		logger.Warn("History unavailable", "error", err)
		return
	}
	defer store.Close()

	if err := store.Put(rec); err != nil {
		logger.Warn("Failed to record run", "error", err)
		return
	}
	logger.Debug("Run recorded", "id", rec.ID)
}

// newFormatter looks up the report formatter. The template format uses
// tmpl when given and the built-in template otherwise.
func newFormatter(format, tmpl string) (output.Formatter, error) {
	if format == "" {
		format = config.DefaultOutput
	}
	if format == "template" && tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}

	formatter, err := output.Get(format)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}
	return formatter, nil
}
