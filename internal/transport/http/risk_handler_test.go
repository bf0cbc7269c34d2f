package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"defiguard/internal/config"
	"defiguard/internal/infrastructure"
	"defiguard/internal/services"
)

func testRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	metrics := infrastructure.NewMetrics(prometheus.NewRegistry())

	analysis := services.NewAnalysisService(config.Default().Analysis, metrics, logger)
	health := services.NewHealthService("test", "", config.Default().Analysis, analysis, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewRiskHandler(analysis, logger).RegisterRoutes(r)
		r.Get("/health", NewHealthHandler(health, logger).HealthCheck)
	})
	return r
}

// analyzePayload builds a request body with daily histories ending yesterday.
func analyzePayload(t *testing.T, days map[string]int) []byte {
	t.Helper()
	end := time.Now().UTC().Truncate(24 * time.Hour)

	type point struct {
		Timestamp time.Time `json:"timestamp"`
		Price     float64   `json:"price"`
	}
	type history struct {
		Symbol string  `json:"symbol"`
		Points []point `json:"points"`
	}

	balances := map[string]float64{}
	histories := []history{}
	base := 100.0
	for sym, n := range days {
		balances[sym] = 1000
		h := history{Symbol: sym}
		for i := 0; i < n; i++ {
			h.Points = append(h.Points, point{
				Timestamp: end.AddDate(0, 0, i-n),
				Price:     base + float64(i)*0.5,
			})
		}
		histories = append(histories, h)
		base *= 3
	}

	body, err := json.Marshal(map[string]interface{}{
		"portfolio_id": "acct-1",
		"balances":     balances,
		"histories":    histories,
	})
	require.NoError(t, err)
	return body
}

func TestAnalyzeEndpointReturnsReport(t *testing.T) {
	router := testRouter(t)

	body := analyzePayload(t, map[string]int{"BTC": 60, "ETH": 60})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/risk/analyze", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.ElementsMatch(t, []interface{}{"BTC", "ETH"}, report["symbols"])
	assert.NotNil(t, report["metrics"])
	assert.NotNil(t, report["frontier"])
}

func TestAnalyzeEndpointRejectsInvalidJSON(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/risk/analyze", strings.NewReader("{broken")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeEndpointRejectsBadEstimator(t *testing.T) {
	router := testRouter(t)

	body := fmt.Sprintf(`{"portfolio_id":"acct-1","balances":{"BTC":1},"estimator":"oracle","histories":[{"symbol":"BTC","points":[{"timestamp":%q,"price":1}]}]}`,
		time.Now().UTC().Format(time.RFC3339))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/risk/analyze", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/validation", problem["type"])
}

func TestAnalyzeEndpointInsufficientData(t *testing.T) {
	router := testRouter(t)

	// One asset has only 5 closes; only one survivor remains.
	body := analyzePayload(t, map[string]int{"BTC": 60, "NEW": 5})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/risk/analyze", bytes.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/analysis/insufficient-data", problem["type"])
	assert.Equal(t, float64(1), problem["remaining_assets"])
	assert.NotNil(t, problem["excluded"])
}

func TestAnalyzeExportReturnsWorkbook(t *testing.T) {
	router := testRouter(t)

	body := analyzePayload(t, map[string]int{"BTC": 60, "ETH": 60})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/risk/analyze/export", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "risk-report-acct-1")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, "test", status["version"])
}
