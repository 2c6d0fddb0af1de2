package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/config"
	"github.com/keagan/tabreel/internal/editor"
	"github.com/keagan/tabreel/internal/export"
	"github.com/keagan/tabreel/internal/ffmpeg"
	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/internal/publish"
	"github.com/keagan/tabreel/internal/store"
)

// app holds the collaborators every command is built from
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    *store.Store
	resolver *media.Resolver
	executor *ffmpeg.Executor
	prober   *ffmpeg.Prober
	exporter *export.Exporter
	session  *editor.Session
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	st, err := store.Open(cfg.DBPath(), logger)
	if err != nil {
		return nil, err
	}

	resolver := media.NewResolver(st, cfg.CacheDir(), logger)
	executor := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
		WorkRoot:    cfg.WorkDir,
	})
	prober := ffmpeg.NewProber(resolver, executor, cfg.FFmpeg.ProbeTimeout)
	exporter := export.New(logger, executor, prober, resolver)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		resolver: resolver,
		executor: executor,
		prober:   prober,
		exporter: exporter,
		session:  editor.New(logger, exporter, prober),
	}, nil
}

// enablePublishing attaches the S3 publisher when publishing is configured
func (a *app) enablePublishing(ctx context.Context) (*publish.S3Publisher, error) {
	if !a.cfg.Publish.Enabled {
		return nil, nil
	}
	pub, err := publish.NewS3(ctx, publish.Config{
		Bucket:   a.cfg.Publish.Bucket,
		Region:   a.cfg.Publish.Region,
		Prefix:   a.cfg.Publish.Prefix,
		Endpoint: a.cfg.Publish.Endpoint,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up publishing: %w", err)
	}
	a.session.SetPublisher(pub)
	return pub, nil
}

// player returns a preview media element; ffmpeg is loaded for frame decoding
func (a *app) player(ctx context.Context) (*ffmpeg.FramePlayer, error) {
	if err := a.executor.Load(ctx); err != nil {
		return nil, err
	}
	return ffmpeg.NewFramePlayer(a.executor, a.resolver, float64(a.cfg.Preview.FPS), a.logger), nil
}

func (a *app) defaultExportOptions() export.Options {
	opts := export.DefaultOptions()
	if a.cfg.Export.Format != "" {
		opts.Format = export.Format(a.cfg.Export.Format)
	}
	if a.cfg.Export.Quality != "" {
		opts.Quality = export.Quality(a.cfg.Export.Quality)
	}
	if a.cfg.Export.FPS > 0 {
		opts.FPS = a.cfg.Export.FPS
	}
	return opts
}

func (a *app) Close() {
	a.session.Wait()
	if err := a.executor.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to remove ffmpeg work dir")
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close store")
	}
}
