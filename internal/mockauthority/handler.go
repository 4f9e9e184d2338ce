package mockauthority

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Vasiliy82/eaeu-circulation/internal/config"
	"github.com/Vasiliy82/eaeu-circulation/pkg/tracing"
)

const (
	statusPending    = "PENDING"
	statusReady      = "READY"
	statusRejected   = "REJECTED"
	statusProcessing = "PROCESSING"
	statusAccepted   = "ACCEPTED"
)

type orderItem struct {
	GTIN     string `json:"gtin"`
	Quantity int    `json:"quantity"`
}

type handler struct {
	cfg    config.MockAuthorityConfig
	store  *store
	logger *zap.Logger
}

// NewHandler возвращает маршрутизатор имитатора API эмитента
func NewHandler(cfg config.MockAuthorityConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{cfg: cfg, store: newStore(), logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/auth/login", h.login).Methods(http.MethodPost)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.authenticate, h.injectFailures)
	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.orderStatus).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/codes", h.orderCodes).Methods(http.MethodGet)
	api.HandleFunc("/reports/import", h.createReport).Methods(http.MethodPost)
	api.HandleFunc("/reports/{id}", h.reportStatus).Methods(http.MethodGet)

	return router
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.StartPresentation(r.Context(), "Login", tracing.SubLayerHTTP)
	defer span.End()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Username != h.cfg.Username || req.Password != h.cfg.Password {
		span.SetStatus(codes.Error, "invalid credentials")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": h.store.issueToken()})
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.StartPresentation(r.Context(), "CreateOrder", tracing.SubLayerHTTP)
	defer span.End()

	var req struct {
		ProductGroup string      `json:"product_group"`
		CodeType     int         `json:"code_type"`
		CountryCode  int         `json:"country_code"`
		Items        []orderItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	for _, it := range req.Items {
		if it.GTIN == "" || it.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "invalid item")
			return
		}
	}

	status := statusPending
	if h.cfg.RejectOrders {
		status = statusRejected
	}
	o := h.store.addOrder(req.Items, status)
	span.SetAttributes(attribute.String("order.id", o.id), attribute.Int("order.items", len(req.Items)))
	h.logger.Info("Заказ принят", zap.String("order_id", o.id), zap.Int("items", len(req.Items)))
	writeJSON(w, http.StatusOK, map[string]string{"order_id": o.id})
}

func (h *handler) orderStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, ok := h.store.pollOrder(id, h.cfg.OrderReadyAfter)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "status": status})
}

func (h *handler) orderCodes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	codes, status, ok := h.store.orderCodes(id)
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "order not found")
	case status != statusReady:
		writeError(w, http.StatusConflict, "order is not ready")
	default:
		writeJSON(w, http.StatusOK, map[string][]string{"codes": codes})
	}
}

func (h *handler) createReport(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.StartPresentation(r.Context(), "CreateReport", tracing.SubLayerHTTP)
	defer span.End()

	var req struct {
		ProductGroup string   `json:"product_group"`
		GTIN         string   `json:"gtin"`
		CountryCode  int      `json:"country_code"`
		Reason       string   `json:"reason"`
		Codes        []string `json:"codes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GTIN == "" || len(req.Codes) == 0 {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if slices.Contains(h.cfg.RejectReportGTINs, req.GTIN) {
		writeError(w, http.StatusUnprocessableEntity, "report rejected")
		return
	}
	rep := h.store.addReport(req.GTIN, len(req.Codes), slices.Contains(h.cfg.StuckReportGTINs, req.GTIN))
	span.SetAttributes(attribute.String("report.id", rep.id), attribute.String("gtin", req.GTIN))
	h.logger.Info("Отчет принят", zap.String("report_id", rep.id), zap.String("gtin", req.GTIN), zap.Int("codes", len(req.Codes)))
	writeJSON(w, http.StatusOK, map[string]string{"report_id": rep.id})
}

func (h *handler) reportStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, ok := h.store.pollReport(id, h.cfg.ReportReadyAfter)
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report_id": id, "status": status})
}

// authenticate пропускает только запросы с выданным токеном
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !h.store.validToken(token) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// injectFailures имитирует сбои эмитента с заданной вероятностью
func (h *handler) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.Error500Prob > 0 && rand.Float64() < h.cfg.Error500Prob {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
