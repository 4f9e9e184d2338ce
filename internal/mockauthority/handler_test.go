package mockauthority

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasiliy82/eaeu-circulation/internal/config"
)

const testGTIN = "04660575291478"

func testConfig() config.MockAuthorityConfig {
	return config.MockAuthorityConfig{
		Username:         "demo",
		Password:         "secret",
		OrderReadyAfter:  1,
		ReportReadyAfter: 0,
		StuckReportGTINs: []string{"04660575291485"},
	}
}

func call(t *testing.T, h http.Handler, method, path, token, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	status, out := call(t, h, http.MethodPost, "/api/v1/auth/login", "", `{"username":"demo","password":"secret"}`)
	require.Equal(t, http.StatusOK, status)
	return out["token"].(string)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	h := NewHandler(testConfig(), nil)

	status, _ := call(t, h, http.MethodPost, "/api/v1/auth/login", "", `{"username":"demo","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	assert.NotEmpty(t, login(t, h))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	h := NewHandler(testConfig(), nil)
	status, _ := call(t, h, http.MethodPost, "/api/v1/orders", "bogus", `{}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOrderLifecycle(t *testing.T) {
	t.Parallel()

	h := NewHandler(testConfig(), nil)
	token := login(t, h)

	status, out := call(t, h, http.MethodPost, "/api/v1/orders", token,
		`{"product_group":"shoes","code_type":20,"country_code":643,"items":[{"gtin":"`+testGTIN+`","quantity":2}]}`)
	require.Equal(t, http.StatusOK, status)
	id := out["order_id"].(string)

	status, _ = call(t, h, http.MethodGet, "/api/v1/orders/"+id+"/codes", token, "")
	assert.Equal(t, http.StatusConflict, status)

	_, out = call(t, h, http.MethodGet, "/api/v1/orders/"+id, token, "")
	assert.Equal(t, statusPending, out["status"])
	_, out = call(t, h, http.MethodGet, "/api/v1/orders/"+id, token, "")
	assert.Equal(t, statusReady, out["status"])

	status, out = call(t, h, http.MethodGet, "/api/v1/orders/"+id+"/codes", token, "")
	require.Equal(t, http.StatusOK, status)
	codes := out["codes"].([]any)
	require.Len(t, codes, 2)
	assert.True(t, strings.HasPrefix(codes[0].(string), "01"+testGTIN+"215"))

	status, _ = call(t, h, http.MethodGet, "/api/v1/orders/unknown", token, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReportLifecycle(t *testing.T) {
	t.Parallel()

	h := NewHandler(testConfig(), nil)
	token := login(t, h)

	status, out := call(t, h, http.MethodPost, "/api/v1/reports/import", token,
		`{"product_group":"shoes","gtin":"`+testGTIN+`","country_code":643,"reason":"import","codes":["c1"]}`)
	require.Equal(t, http.StatusOK, status)
	_, out = call(t, h, http.MethodGet, "/api/v1/reports/"+out["report_id"].(string), token, "")
	assert.Equal(t, statusAccepted, out["status"])

	// Отчёт по "зависшему" GTIN не подтверждается
	_, out = call(t, h, http.MethodPost, "/api/v1/reports/import", token,
		`{"gtin":"04660575291485","codes":["c2"]}`)
	id := out["report_id"].(string)
	for i := 0; i < 3; i++ {
		_, out = call(t, h, http.MethodGet, "/api/v1/reports/"+id, token, "")
		assert.Equal(t, statusProcessing, out["status"])
	}
}

func TestRejections(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RejectOrders = true
	cfg.RejectReportGTINs = []string{testGTIN}
	h := NewHandler(cfg, nil)
	token := login(t, h)

	_, out := call(t, h, http.MethodPost, "/api/v1/orders", token, `{"items":[{"gtin":"`+testGTIN+`","quantity":1}]}`)
	_, out = call(t, h, http.MethodGet, "/api/v1/orders/"+out["order_id"].(string), token, "")
	assert.Equal(t, statusRejected, out["status"])

	status, _ := call(t, h, http.MethodPost, "/api/v1/reports/import", token, `{"gtin":"`+testGTIN+`","codes":["c1"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = call(t, h, http.MethodPost, "/api/v1/orders", token, `{"items":[{"gtin":"`+testGTIN+`","quantity":0}]}`)
	assert.Equal(t, http.StatusBadRequest, status)
}
