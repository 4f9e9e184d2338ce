package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Vasiliy82/eaeu-circulation/internal/config"
	"github.com/Vasiliy82/eaeu-circulation/internal/mockauthority"
	"github.com/Vasiliy82/eaeu-circulation/internal/poll"
	"github.com/Vasiliy82/eaeu-circulation/internal/usecase"
	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const (
	gtinA = "04660575291478"
	gtinB = "04660575291485"
)

func newMockAuthority(t *testing.T, mutate func(*config.MockAuthorityConfig)) *httptest.Server {
	t.Helper()

	cfg := config.MockAuthorityConfig{
		Username:         "demo",
		Password:         "secret",
		OrderReadyAfter:  2,
		ReportReadyAfter: 1,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv := httptest.NewServer(mockauthority.NewHandler(cfg, nil))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(baseURL, password string) *AuthorityClient {
	return NewAuthorityClient(AuthorityConfig{
		BaseURL:      baseURL + "/",
		Username:     "demo",
		Password:     password,
		Timeout:      5 * time.Second,
		ProductGroup: "shoes",
		CodeType:     20,
		CountryCode:  643,
		ReasonCode:   "import",
	}, poll.New(clock.New(), time.Millisecond, 2*time.Second, nil), nil)
}

func TestAuthorityClient_Authenticate(t *testing.T) {
	t.Parallel()

	srv := newMockAuthority(t, nil)

	err := newClient(srv.URL, "wrong").Authenticate(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.NoError(t, newClient(srv.URL, "secret").Authenticate(context.Background()))
}

func TestAuthorityClient_RequiresToken(t *testing.T) {
	t.Parallel()

	srv := newMockAuthority(t, nil)
	_, err := newClient(srv.URL, "secret").OrderCodes(context.Background(), domain.Shortfall{{GTIN: gtinA, Count: 1}})
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthorityClient_OrderAndReportLifecycle(t *testing.T) {
	t.Parallel()

	srv := newMockAuthority(t, nil)
	c := newClient(srv.URL, "secret")
	ctx := context.Background()

	require.NoError(t, c.Authenticate(ctx))

	id, err := c.OrderCodes(ctx, domain.Shortfall{{GTIN: gtinA, Count: 2}, {GTIN: gtinB, Count: 1}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.AwaitOrder(ctx, id))

	codes, err := c.DownloadCodes(ctx, id)
	require.NoError(t, err)
	require.Len(t, codes, 3)
	g, ok := codes[2].GTIN()
	require.True(t, ok)
	assert.Equal(t, gtinB, g)

	reportID, err := c.SubmitReport(ctx, gtinA, codes[:2])
	require.NoError(t, err)
	require.NoError(t, c.AwaitReport(ctx, reportID))
}

func TestAuthorityClient_AwaitOutcomes(t *testing.T) {
	t.Parallel()

	srv := newMockAuthority(t, func(cfg *config.MockAuthorityConfig) {
		cfg.RejectOrders = true
		cfg.StuckReportGTINs = []string{gtinA}
	})
	c := newClient(srv.URL, "secret")
	c.poller = poll.New(clock.New(), time.Millisecond, 50*time.Millisecond, nil)
	ctx := context.Background()
	require.NoError(t, c.Authenticate(ctx))

	id, err := c.OrderCodes(ctx, domain.Shortfall{{GTIN: gtinA, Count: 1}})
	require.NoError(t, err)
	require.ErrorIs(t, c.AwaitOrder(ctx, id), poll.ErrRejected)

	reportID, err := c.SubmitReport(ctx, gtinA, []domain.Code{"c1"})
	require.NoError(t, err)
	require.ErrorIs(t, c.AwaitReport(ctx, reportID), poll.ErrTimeout)
}

func TestAuthorityClient_RequestBodies(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_, _ = w.Write([]byte(`{"token":"t-1"}`))
		case "/api/v1/reports/import":
			assert.Equal(t, "Bearer t-1", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"report_id":"r-1"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL, "secret")
	require.NoError(t, c.Authenticate(context.Background()))
	id, err := c.SubmitReport(context.Background(), gtinA, []domain.Code{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, "r-1", id)

	assert.Equal(t, map[string]any{
		"product_group": "shoes",
		"gtin":          gtinA,
		"country_code":  float64(643),
		"reason":        "import",
		"codes":         []any{"c1", "c2"},
	}, got)
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, poll.Done, orderStatus("ready"))
	assert.Equal(t, poll.Failed, orderStatus(OrderRejected))
	assert.Equal(t, poll.Pending, orderStatus(OrderPending))
	assert.Equal(t, poll.Pending, orderStatus(""))
	assert.Equal(t, poll.Done, reportStatus(ReportAccepted))
	assert.Equal(t, poll.Failed, reportStatus(ReportRejected))
	assert.Equal(t, poll.Pending, reportStatus(ReportProcessing))
}

// Полный процесс через HTTP-клиент и имитатор эмитента
func TestCirculationAgainstMockAuthority(t *testing.T) {
	t.Parallel()

	srv := newMockAuthority(t, func(cfg *config.MockAuthorityConfig) {
		cfg.StuckReportGTINs = []string{gtinB}
	})
	c := newClient(srv.URL, "secret")
	c.poller = poll.New(clock.New(), time.Millisecond, 100*time.Millisecond, nil)

	res, err := usecase.NewCirculationUseCase(c).Run(context.Background(), usecase.Input{
		Records: []domain.ProductRecord{
			{GTIN: gtinA, Quantity: 2},
			{GTIN: gtinB, Quantity: 1},
		},
		Codes: []domain.Code{domain.Code("01" + gtinA + "215abc")},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, res.StepIndexes())
	assert.True(t, res.Success)
	assert.Equal(t, domain.FinalPartial, res.FinalStatus)
	require.Len(t, res.Steps[4].Reports, 2)
	assert.Equal(t, 2, res.Steps[4].Reports[0].CodesCount)
	assert.Equal(t, res.Steps[4].Reports[1].ReportID, res.Steps[5].UnconfirmedReportID)
}
