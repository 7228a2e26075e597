package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/park285/Cheese-Board/internal/boardbuilder"
	appcfg "github.com/park285/Cheese-Board/internal/config"
	"github.com/park285/Cheese-Board/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("board_connecting", zap.String("port", cfg.SerialPort), zap.Int("baud", cfg.SerialBaud))
	deps, err := boardbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("board init error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close_error", zap.Error(err))
		}
	}()

	go func() {
		if err := deps.Button.Run(ctx, deps.Signal); err != nil {
			logger.Warn("button_stopped", zap.Error(err))
		}
	}()
	if deps.Status != nil {
		go func() {
			if err := deps.Status.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				logger.Warn("status_server_stopped", zap.Error(err))
			}
		}()
	}

	err = deps.Game.Run(ctx)
	switch {
	case err == nil:
		logger.Info("la_fin", zap.String("session_id", deps.Game.Session().ID))
	case errors.Is(err, context.Canceled):
		logger.Info("game_interrupted")
	default:
		logger.Error("game_loop_error", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}
