package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/KareemAyyad/rekordbox-dj/internal/api"
	"github.com/KareemAyyad/rekordbox-dj/internal/app"
	"github.com/KareemAyyad/rekordbox-dj/internal/events"
	"github.com/KareemAyyad/rekordbox-dj/internal/export"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/config"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
	"github.com/KareemAyyad/rekordbox-dj/internal/pipeline"
	"github.com/KareemAyyad/rekordbox-dj/internal/stages"
	"github.com/KareemAyyad/rekordbox-dj/internal/store"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Crate HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}

	if err := stages.ValidateDependencies(); err != nil {
		return err
	}
	for bin, feature := range stages.OptionalBinaries {
		if !stages.Available(bin) {
			log.Warn("%s not found; %s will be skipped", bin, feature)
		}
	}

	if err := os.MkdirAll(cfg.Library.InboxDir, 0755); err != nil {
		return fmt.Errorf("could not create inbox dir: %w", err)
	}

	st, err := store.NewLibraryStore(cfg.Library.SQLitePath)
	if err != nil {
		return fmt.Errorf("store error: %w", err)
	}
	defer st.Close()

	appCtx := app.NewContext(cfg, log)
	appCtx.Metadata = stages.NewMetadataService(time.Duration(cfg.Pipeline.MetadataTimeoutSec)*time.Second, cfg.Download.CookiesFile, log)
	appCtx.Downloader = stages.NewDownloadService(time.Duration(cfg.Pipeline.DownloadTimeoutSec)*time.Second, cfg.Download.CookiesFile, log)
	appCtx.Classify = stages.NewClassifier()
	appCtx.Titles = stages.NewTitleParser()
	appCtx.Fingerprint = stages.NewFingerprintService(
		cfg.Fingerprint.AcoustIDKey,
		cfg.Fingerprint.FpcalcPath,
		cfg.Fingerprint.MinConfidence,
		cfg.Fingerprint.StrictConfidence,
		time.Duration(cfg.Fingerprint.HTTPTimeoutSec)*time.Second,
		cfg.Fingerprint.CacheDir,
		log,
	)
	appCtx.Harmonic = stages.NewHarmonicAnalyzer(time.Duration(cfg.Pipeline.AnalysisTimeoutSec)*time.Second, log)
	appCtx.Audio = stages.NewAudioProcessor(time.Duration(cfg.Pipeline.FFmpegTimeoutSec)*time.Second, log)
	appCtx.Tags = stages.NewTagger(30*time.Second, time.Duration(cfg.Pipeline.FFmpegTimeoutSec)*time.Second, log)
	appCtx.Store = st
	appCtx.Export = export.NewGenerator()

	bus := events.NewBus(cfg.Events.HistoryLimit, cfg.Events.SubscriberBuffer)
	pipe := pipeline.NewPipeline(appCtx, bus)

	e := echo.New()
	api.RegisterRoutes(e, appCtx, bus, pipe, st)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("crated listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
