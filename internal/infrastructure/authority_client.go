package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/poll"
	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

// Статусы заказа и отчёта в API эмитента
const (
	OrderPending  = "PENDING"
	OrderReady    = "READY"
	OrderRejected = "REJECTED"

	ReportProcessing = "PROCESSING"
	ReportAccepted   = "ACCEPTED"
	ReportRejected   = "REJECTED"
)

// ErrNotAuthenticated: вызов API до успешной авторизации
var ErrNotAuthenticated = errors.New("клиент не авторизован")

// APIError: ответ эмитента с кодом не 2xx
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// AuthorityConfig: адрес, учётные данные и константы документов
type AuthorityConfig struct {
	BaseURL      string
	Username     string
	Password     string
	Timeout      time.Duration
	ProductGroup string
	CodeType     int
	CountryCode  int
	ReasonCode   string
}

// Тела запросов и ответов
type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	loginResponse struct {
		Token string `json:"token"`
	}
	orderItem struct {
		GTIN     string `json:"gtin"`
		Quantity int    `json:"quantity"`
	}
	orderRequest struct {
		ProductGroup string      `json:"product_group"`
		CodeType     int         `json:"code_type"`
		CountryCode  int         `json:"country_code"`
		Items        []orderItem `json:"items"`
	}
	orderResponse struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status,omitempty"`
	}
	codesResponse struct {
		Codes []string `json:"codes"`
	}
	reportRequest struct {
		ProductGroup string   `json:"product_group"`
		GTIN         string   `json:"gtin"`
		CountryCode  int      `json:"country_code"`
		Reason       string   `json:"reason"`
		Codes        []string `json:"codes"`
	}
	reportResponse struct {
		ReportID string `json:"report_id"`
		Status   string `json:"status,omitempty"`
	}
)

// AuthorityClient: HTTP-клиент API эмитента кодов маркировки.
// Токен хранится в клиенте после Authenticate.
type AuthorityClient struct {
	cfg    AuthorityConfig
	client *http.Client
	poller *poll.Poller
	logger *zap.Logger

	mu    sync.Mutex
	token string
}

// NewAuthorityClient создает клиента. Ожидание заказов и отчётов ведёт poller.
func NewAuthorityClient(cfg AuthorityConfig, poller *poll.Poller, logger *zap.Logger) *AuthorityClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poller == nil {
		poller = poll.New(nil, 5*time.Second, 300*time.Second, logger)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &AuthorityClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: tracing.WrapTransport(nil)},
		poller: poller,
		logger: logger,
	}
}

// Authenticate получает токен доступа
func (c *AuthorityClient) Authenticate(ctx context.Context) error {
	ctx, span := tracing.StartIntegration(ctx, "Authenticate", tracing.SubLayerThirdParty)
	defer span.End()

	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", false,
		loginRequest{Username: c.cfg.Username, Password: c.cfg.Password}, &resp)
	if err == nil && resp.Token == "" {
		err = errors.New("эмитент не вернул токен")
	}
	if err != nil {
		tracing.Fail(span, err)
		return fmt.Errorf("ошибка авторизации: %w", err)
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

// OrderCodes заказывает недостающие коды одной заявкой на все группы
func (c *AuthorityClient) OrderCodes(ctx context.Context, shortfall domain.Shortfall) (string, error) {
	ctx, span := tracing.StartIntegration(ctx, "OrderCodes", tracing.SubLayerThirdParty)
	defer span.End()

	req := orderRequest{
		ProductGroup: c.cfg.ProductGroup,
		CodeType:     c.cfg.CodeType,
		CountryCode:  c.cfg.CountryCode,
		Items:        make([]orderItem, 0, len(shortfall)),
	}
	for _, g := range shortfall {
		req.Items = append(req.Items, orderItem{GTIN: g.GTIN, Quantity: g.Count})
	}
	span.SetAttributes(attribute.Int("order.items", len(req.Items)), attribute.Int("order.total", shortfall.Total()))

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", true, req, &resp); err != nil {
		tracing.Fail(span, err)
		return "", fmt.Errorf("ошибка создания заказа: %w", err)
	}
	span.SetAttributes(attribute.String("order.id", resp.OrderID))
	return resp.OrderID, nil
}

// AwaitOrder ждёт статуса READY
func (c *AuthorityClient) AwaitOrder(ctx context.Context, orderID string) error {
	ctx, span := tracing.StartIntegration(ctx, "AwaitOrder", tracing.SubLayerThirdParty)
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	err := c.poller.Until(ctx, "заказ "+orderID, func(ctx context.Context) (poll.Status, error) {
		var resp orderResponse
		if err := c.do(ctx, http.MethodGet, "/api/v1/orders/"+url.PathEscape(orderID), true, nil, &resp); err != nil {
			return poll.Pending, err
		}
		c.logger.Debug("Статус заказа", zap.String("order_id", orderID), zap.String("status", resp.Status))
		return orderStatus(resp.Status), nil
	})
	tracing.Fail(span, err)
	return err
}

// DownloadCodes скачивает полные коды выполненного заказа
func (c *AuthorityClient) DownloadCodes(ctx context.Context, orderID string) ([]domain.Code, error) {
	ctx, span := tracing.StartIntegration(ctx, "DownloadCodes", tracing.SubLayerThirdParty)
	defer span.End()

	var resp codesResponse
	path := "/api/v1/orders/" + url.PathEscape(orderID) + "/codes"
	if err := c.do(ctx, http.MethodGet, path, true, nil, &resp); err != nil {
		tracing.Fail(span, err)
		return nil, fmt.Errorf("ошибка скачивания кодов: %w", err)
	}
	span.SetAttributes(attribute.Int("codes.count", len(resp.Codes)))
	return domain.Codes(resp.Codes), nil
}

// SubmitReport отправляет отчёт о вводе в оборот (импорт) по одной группе
func (c *AuthorityClient) SubmitReport(ctx context.Context, gtin string, codes []domain.Code) (string, error) {
	ctx, span := tracing.StartIntegration(ctx, "SubmitReport", tracing.SubLayerThirdParty)
	defer span.End()
	span.SetAttributes(attribute.String("gtin", gtin), attribute.Int("codes.count", len(codes)))

	req := reportRequest{
		ProductGroup: c.cfg.ProductGroup,
		GTIN:         gtin,
		CountryCode:  c.cfg.CountryCode,
		Reason:       c.cfg.ReasonCode,
		Codes:        domain.Strings(codes),
	}
	var resp reportResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports/import", true, req, &resp); err != nil {
		tracing.Fail(span, err)
		return "", fmt.Errorf("ошибка отправки отчета по GTIN %s: %w", gtin, err)
	}
	span.SetAttributes(attribute.String("report.id", resp.ReportID))
	return resp.ReportID, nil
}

// AwaitReport ждёт статуса ACCEPTED
func (c *AuthorityClient) AwaitReport(ctx context.Context, reportID string) error {
	ctx, span := tracing.StartIntegration(ctx, "AwaitReport", tracing.SubLayerThirdParty)
	defer span.End()
	span.SetAttributes(attribute.String("report.id", reportID))

	err := c.poller.Until(ctx, "отчет "+reportID, func(ctx context.Context) (poll.Status, error) {
		var resp reportResponse
		if err := c.do(ctx, http.MethodGet, "/api/v1/reports/"+url.PathEscape(reportID), true, nil, &resp); err != nil {
			return poll.Pending, err
		}
		c.logger.Debug("Статус отчета", zap.String("report_id", reportID), zap.String("status", resp.Status))
		return reportStatus(resp.Status), nil
	})
	tracing.Fail(span, err)
	return err
}

func orderStatus(s string) poll.Status {
	switch strings.ToUpper(s) {
	case OrderReady:
		return poll.Done
	case OrderRejected:
		return poll.Failed
	default:
		return poll.Pending
	}
}

func reportStatus(s string) poll.Status {
	switch strings.ToUpper(s) {
	case ReportAccepted:
		return poll.Done
	case ReportRejected:
		return poll.Failed
	default:
		return poll.Pending
	}
}

// do выполняет JSON-запрос. Ответ с кодом не 2xx возвращается как *APIError.
func (c *AuthorityClient) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка разбора ответа %s %s: %w", method, path, err)
	}
	return nil
}
