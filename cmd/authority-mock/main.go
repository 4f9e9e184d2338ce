package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/config"
	"github.com/Vasiliy82/eaeu-circulation/internal/logging"
	"github.com/Vasiliy82/eaeu-circulation/internal/mockauthority"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

func main() {
	// Загружаем конфиг
	cfg := config.LoadMockConfig()

	logger, err := logging.New(logging.Options{Level: os.Getenv("LOG_LEVEL")})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// Инициализация OpenTelemetry трейсов
	tracerCleanup, err := tracing.InitTracer(
		tracing.TraceConfig{ExporterURL: cfg.Tracing.ExporterURL, SampleRate: cfg.Tracing.SampleRate, Timeout: 5 * time.Second},
		tracing.AppInfo{
			Environment:       "development",
			DomainName:        cfg.Tracing.DomainName,
			ServiceName:       cfg.Tracing.ServiceName,
			ServiceVersion:    cfg.Tracing.ServiceVersion,
			ServiceInstanceID: cfg.Tracing.InstanceID,
		},
	)
	if err != nil {
		logger.Fatal("Ошибка инициализации трейсинга", zap.Error(err))
	}
	defer func() { _ = tracerCleanup(context.Background()) }()

	// Создаем HTTP сервер
	srv := mockauthority.New(cfg, logger)

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("Authority mock started", zap.String("address", cfg.ListenAddress))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Обрабатываем сигналы завершения работы
	gracefulShutdown(srv, logger)
}

// gracefulShutdown корректно завершает работу сервиса
func gracefulShutdown(srv *mockauthority.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("Server stopped gracefully")
}
