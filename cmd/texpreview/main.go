package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texpreview/internal/backup"
	"git.home.luguber.info/inful/texpreview/internal/compile"
	"git.home.luguber.info/inful/texpreview/internal/config"
	"git.home.luguber.info/inful/texpreview/internal/events"
	"git.home.luguber.info/inful/texpreview/internal/history"
	"git.home.luguber.info/inful/texpreview/internal/metrics"
	"git.home.luguber.info/inful/texpreview/internal/outline"
	"git.home.luguber.info/inful/texpreview/internal/pipeline"
	"git.home.luguber.info/inful/texpreview/internal/render"
	"git.home.luguber.info/inful/texpreview/internal/server"
	"git.home.luguber.info/inful/texpreview/internal/session"
	"git.home.luguber.info/inful/texpreview/internal/watcher"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"texpreview.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct {
		Document string `arg:"" optional:"" help:"Document to open on startup"`
		Listen   string `short:"l" help:"Override the configured listen address"`
		NoWatch  bool   `help:"Disable the on-disk change watcher"`
	} `cmd:"" help:"Start the live preview server"`

	Compile struct {
		Document string `arg:"" help:"Document to compile"`
	} `cmd:"" help:"Compile a document once and print the outcome"`

	Outline struct {
		Document string `arg:"" help:"Document to outline"`
	} `cmd:"" help:"Print the heading outline of a document"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	var err error
	switch ctx.Command() {
	case "serve", "serve <document>":
		err = runServe(CLI.Serve.Document, CLI.Serve.Listen, CLI.Serve.NoWatch)
	case "compile <document>":
		err = runCompile(CLI.Compile.Document)
	case "outline <document>":
		err = runOutline(CLI.Outline.Document)
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// loadConfig falls back to defaults when the configuration file is absent;
// an explicit file that fails to parse is still an error.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) {
		slog.Debug("Configuration file not found, using defaults", "path", CLI.Config)
		return config.Default(), nil
	}
	return config.Load(CLI.Config)
}

func runServe(document, listen string, noWatch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Server.Listen
	}

	extractor, err := outline.NewExtractor(cfg.Outline.HeadingKinds)
	if err != nil {
		return err
	}

	journal, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	rec := metrics.NewPrometheusRecorder(nil)
	bus := events.NewBus()
	defer bus.Close()

	orch := compile.NewOrchestrator(cfg.Compiler.Tool, cfg.CompileTimeout(),
		render.NewFitzRenderer(cfg.Render.DPI), rec)
	svc := pipeline.NewService(cfg, bus, extractor, orch, journal, rec)
	defer svc.Shutdown()

	backups, err := backup.NewScheduler(cfg.BackupInterval(), svc.BackupSource(), rec)
	if err != nil {
		return err
	}
	backups.Start()
	defer func() {
		if err := backups.Stop(); err != nil {
			slog.Warn("Backup scheduler shutdown error", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if document != "" {
		if err := svc.LoadDocument(ctx, document, ""); err != nil {
			return fmt.Errorf("open document: %w", err)
		}

		if !noWatch {
			w, err := watcher.New(document, svc)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()
			go func() {
				if err := w.Run(ctx); err != nil {
					slog.Warn("Watcher stopped", "error", err)
				}
			}()
		}
	}

	srv := server.NewServer(svc, journal, rec.Handler(), slog.Default())
	if err := srv.ListenAndServe(ctx, listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runCompile(document string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(document)
	if err != nil {
		return err
	}

	sess, err := session.Open(document, string(data), cfg.Backup.DirName)
	if err != nil {
		return err
	}

	orch := compile.NewOrchestrator(cfg.Compiler.Tool, cfg.CompileTimeout(),
		render.NewFitzRenderer(cfg.Render.DPI), metrics.NoopRecorder{})
	out := orch.Run(context.Background(), sess)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"request_id":  out.RequestID,
		"compile":     out.Compile,
		"render":      out.Render,
		"duration_ms": out.Duration.Milliseconds(),
	}); err != nil {
		return err
	}

	if !out.Compile.OK {
		return fmt.Errorf("compile failed: %s", out.Compile.Kind)
	}
	return nil
}

func runOutline(document string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	extractor, err := outline.NewExtractor(cfg.Outline.HeadingKinds)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(document)
	if err != nil {
		return err
	}

	root := extractor.Extract(string(data))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}
