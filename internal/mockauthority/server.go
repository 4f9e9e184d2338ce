package mockauthority

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/config"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

type Server struct {
	httpServer *http.Server
}

// New создает новый сервер
func New(cfg config.MockAuthorityConfig, logger *zap.Logger) *Server {
	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: tracing.WrapHTTPHandler(NewHandler(cfg, logger), "authority-mock"),
	}
	return &Server{httpServer: srv}
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
