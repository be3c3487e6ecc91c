package main

import (
	"context"
	"fmt"
	"log/slog"

	"rawconv/internal/batch"
	"rawconv/internal/config"
	"rawconv/internal/discover"
	"rawconv/internal/encode"
	"rawconv/internal/enhance"
	"rawconv/internal/history"
	"rawconv/internal/logging"
	"rawconv/internal/preflight"
	"rawconv/internal/rawdecode"
	"rawconv/internal/runlock"
)

// session owns the resources shared by convert and watch: the logger, the
// output-directory lock, and the history store.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	lock    *runlock.Lock
	history *history.Store
}

func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	lock, err := runlock.Acquire(cfg.Paths.OutputDir)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, lock: lock}
	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in rawconv history"),
			logging.String(logging.FieldErrorHint, "check paths.history_db and its directory permissions"),
		)
	} else {
		s.history = store
	}
	return s, nil
}

func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Debug("close history", logging.Error(err))
		}
	}
	if err := s.lock.Release(); err != nil {
		s.logger.Warn("failed to release output lock", logging.Error(err), logging.String("lock", s.lock.Path()))
	}
}

type runnerOptions struct {
	skipPreflight bool
	exclude       func(string) bool
}

// runner assembles gate, discovery, pipeline, and backend selection.
func (s *session) runner(opts runnerOptions) (*batch.Runner, *discover.Enumerator) {
	cfg := s.cfg
	enumerator := discover.New(discover.Options{
		InputDir:     cfg.Paths.InputDir,
		OutputDir:    cfg.Paths.OutputDir,
		Extensions:   cfg.Input.Extensions,
		Recursive:    cfg.Input.Recursive,
		OutputExt:    cfg.OutputExtension(),
		SkipExisting: cfg.Output.SkipExisting,
		Exclude:      opts.exclude,
	})

	pipeline := batch.NewPipeline(
		rawdecode.New(cfg.Decode.Binary, cfg.Decode.Args, cfg.DecodeTimeout()),
		encode.New(cfg.Output.Format, cfg.Output.Quality),
		s.logger,
	)

	var gate batch.Gate = batch.AllowAll
	if !opts.skipPreflight {
		gate = preflight.NewGate(cfg, s.logger)
	}

	var recorder batch.Recorder
	if s.history != nil {
		recorder = s.history
	}

	runner := batch.NewRunner(batch.RunnerConfig{
		Gate:          gate,
		Enumerator:    enumerator,
		Converter:     pipeline,
		SelectBackend: func() enhance.Backend { return enhance.Select(enhanceOptions(cfg), s.logger) },
		Concurrency:   cfg.Concurrency(),
		Recorder:      recorder,
		Logger:        s.logger,
	})
	return runner, enumerator
}

func enhanceOptions(cfg *config.Config) enhance.Options {
	return enhance.Options{
		Mode:    cfg.Enhance.Backend,
		Enabled: cfg.Enhance.Enabled,
		Params: enhance.Params{
			Sharpen:    cfg.Enhance.Sharpen,
			Contrast:   cfg.Enhance.Contrast,
			Brightness: cfg.Enhance.Brightness,
		},
	}
}
