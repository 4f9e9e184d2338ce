package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Vasiliy82/eaeu-circulation/internal/handler"
	"github.com/Vasiliy82/eaeu-circulation/internal/usecase"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTP API: /api/process и конвертер кодов",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher usecase.ResultPublisher
	if p, err := newPublisher(ctx); err != nil {
		return err
	} else if p != nil {
		defer p.Close()
		publisher = p
	}

	uc, err := newUseCase(publisher)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.NewCirculationHandler(uc, cfg.IsProduction(), logger), logger)

	// Запрос /api/process держится открытым на всё время ожидания эмитента,
	// поэтому WriteTimeout не задаётся
	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           tracing.WrapHTTPHandler(router, "circulation-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Service started", zap.String("address", cfg.ListenAddress), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("Server stopped gracefully")
		return nil
	})
	return g.Wait()
}
