// Package main is the entry point for the readout error mitigation service.
// It measures confusion matrices against the built-in noisy readout
// simulator, stores their inverses, and corrects measurement counts
// submitted over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quanterr/rci/internal/config"
	"github.com/quanterr/rci/internal/database"
	"github.com/quanterr/rci/internal/modules/calibration"
	"github.com/quanterr/rci/internal/modules/mitigation"
	"github.com/quanterr/rci/internal/scheduler"
	"github.com/quanterr/rci/internal/server"
	"github.com/quanterr/rci/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting readout mitigation service")

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "calibrations.db"),
		Name: "calibrations",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open calibration database")
	}
	defer db.Close()

	calibrationStore := calibration.NewStore(db.Conn(), log)
	if err := calibrationStore.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize calibration schema")
	}

	calibrationService := calibration.NewService(calibrationStore, log)
	mitigationService := mitigation.NewService(calibrationService, cfg.ReadoutP0, cfg.ReadoutP1, log)

	calibrationHandler := calibration.NewHandler(calibrationService, calibration.Defaults{
		NumQubits: cfg.CalibrationQubits,
		P0:        cfg.ReadoutP0,
		P1:        cfg.ReadoutP1,
		Shots:     cfg.CalibrationShots,
	}, log)
	mitigationHandler := mitigation.NewHandler(mitigationService, log)

	// Background recalibration keeps the stored inverse fresh. The first
	// cycle runs immediately so correction requests never wait for the
	// schedule to fire.
	sched := scheduler.New(log)
	if cfg.RecalibrationSchedule != "" {
		job := calibration.NewRecalibrationJob(
			calibrationService,
			cfg.CalibrationQubits,
			cfg.ReadoutP0,
			cfg.ReadoutP1,
			cfg.CalibrationShots,
			log,
		)
		if err := sched.AddJob(cfg.RecalibrationSchedule, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register recalibration job")
		}
		if err := sched.RunNow(job); err != nil {
			log.Error().Err(err).Msg("Initial calibration failed")
		}
		sched.Start()
		defer sched.Stop()
	} else {
		log.Warn().Msg("Recalibration schedule is empty, background calibration disabled")
	}

	srv := server.New(server.Config{
		Log:                log,
		Config:             cfg,
		CalibrationHandler: calibrationHandler,
		MitigationHandler:  mitigationHandler,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
