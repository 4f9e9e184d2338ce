package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/convert"
	"github.com/Vasiliy82/eaeu-circulation/internal/parser"
	"github.com/Vasiliy82/eaeu-circulation/internal/usecase"
	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

// Поля multipart-формы
const (
	FieldProductFile = "product_file"
	FieldCodesFile   = "codes_file"
)

// SourceHTTP: источник запусков, пришедших через HTTP
const SourceHTTP = "http"

// Workflow выполняет процесс ввода в оборот
type Workflow interface {
	Run(ctx context.Context, in usecase.Input) (*domain.WorkflowResult, error)
}

type CirculationHandler struct {
	workflow   Workflow
	production bool
	logger     *zap.Logger
}

func NewCirculationHandler(workflow Workflow, production bool, logger *zap.Logger) *CirculationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CirculationHandler{workflow: workflow, production: production, logger: logger}
}

type errorResponse struct {
	Success bool                 `json:"success"`
	Error   *domain.ErrorPayload `json:"error"`
}

type convertRequest struct {
	Codes []string `json:"codes"`
}

type convertResponse struct {
	ConvertedCodes []string `json:"converted_codes"`
}

// Process: загрузка двух файлов и запуск процесса ввода в оборот
func (h *CirculationHandler) Process(c *gin.Context) {
	ctx, span := tracing.StartPresentation(c.Request.Context(), "Process", tracing.SubLayerHTTP)
	defer span.End()

	productText, err := h.readTextFile(c, FieldProductFile)
	if err == nil {
		var codesText string
		codesText, err = h.readTextFile(c, FieldCodesFile)
		if err == nil {
			err = h.run(ctx, c, productText, codesText)
		}
	}
	if err != nil {
		tracing.Fail(span, err)
		h.fail(c, err)
	}
}

func (h *CirculationHandler) run(ctx context.Context, c *gin.Context, productText, codesText string) error {
	records, err := parser.ParseRecords(productText)
	if err != nil {
		h.logger.Warn("Ошибка парсинга файла товаров", zap.Error(err))
		return err
	}
	codes := parser.ParseCodes(codesText)
	h.logger.Info("Распарсены файлы", zap.Int("products", len(records)), zap.Int("codes", len(codes)))

	res, err := h.workflow.Run(ctx, usecase.Input{Records: records, Codes: codes, Source: SourceHTTP})
	if err != nil {
		if res == nil {
			return err
		}
		if res.Error != nil && !h.production {
			res.Error.Detail = err.Error()
		}
		c.JSON(httpStatus(err), res)
		return nil
	}
	c.JSON(http.StatusOK, res)
	return nil
}

// Convert: JSON {"codes": [...]} -> {"converted_codes": [...]}
func (h *CirculationHandler) Convert(c *gin.Context) {
	codes, ok := h.bindCodes(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, convertResponse{ConvertedCodes: convert.All(codes)})
}

// ConvertDownload: то же, но ответ отдаётся файлом converted_codes.txt
func (h *CirculationHandler) ConvertDownload(c *gin.Context) {
	codes, ok := h.bindCodes(c)
	if !ok {
		return
	}
	attachment(c, convert.All(codes))
}

// ConvertUpload: файл кодов (и, при наличии, файл товаров для проверки) -> файл converted_codes.txt
func (h *CirculationHandler) ConvertUpload(c *gin.Context) {
	_, span := tracing.StartPresentation(c.Request.Context(), "ConvertUpload", tracing.SubLayerHTTP)
	defer span.End()

	codesText, err := h.readTextFile(c, FieldCodesFile)
	if err != nil {
		tracing.Fail(span, err)
		h.fail(c, err)
		return
	}

	productsCount := 0
	if _, present := c.Request.MultipartForm.File[FieldProductFile]; present {
		productText, err := h.readTextFile(c, FieldProductFile)
		if err == nil {
			var records []domain.ProductRecord
			records, err = parser.ParseRecords(productText)
			productsCount = len(records)
		}
		if err != nil {
			tracing.Fail(span, err)
			h.fail(c, err)
			return
		}
	}

	codes := domain.Strings(parser.ParseCodes(codesText))
	span.SetAttributes(attribute.Int("codes.count", len(codes)), attribute.Int("products.count", productsCount))
	c.Header("X-Products-Count", fmt.Sprint(productsCount))
	c.Header("X-Codes-Count", fmt.Sprint(len(codes)))
	attachment(c, convert.All(codes))
}

// Healthz: проверка живости
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *CirculationHandler) bindCodes(c *gin.Context) ([]string, bool) {
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &requestError{kind: KindBadRequest, message: "Некорректный JSON"})
		return nil, false
	}
	if len(req.Codes) == 0 {
		h.fail(c, &requestError{kind: KindBadRequest, message: "Список кодов не может быть пустым"})
		return nil, false
	}
	return req.Codes, true
}

// readTextFile читает файл формы и проверяет кодировку
func (h *CirculationHandler) readTextFile(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh.Filename == "" {
		return "", &requestError{kind: KindMissingFile, message: "Необходимо загрузить оба файла"}
	}
	data, err := readAll(fh)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения файла %s: %w", field, err)
	}
	return parser.DecodeUTF8(field, data)
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *CirculationHandler) fail(c *gin.Context, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Ошибка обработки запроса", zap.Error(err))
	}
	c.JSON(status, errorResponse{Success: false, Error: errorPayload(err, h.production)})
}

func attachment(c *gin.Context, codes []string) {
	c.Header("Content-Disposition", "attachment; filename=converted_codes.txt")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(convert.Lines(codes)))
}
