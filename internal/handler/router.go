package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter регистрирует маршруты сервиса
func NewRouter(h *CirculationHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(logger), Recovery(logger, h.production))

	router.GET("/healthz", Healthz)

	router.POST("/api/process", h.Process)

	router.POST("/convert", h.Convert)
	router.POST("/convert/download", h.ConvertDownload)
	router.POST("/convert/upload", h.ConvertUpload)

	return router
}
