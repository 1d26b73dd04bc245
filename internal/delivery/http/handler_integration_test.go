package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/sqlite"
	"github.com/pricelens/backend/internal/usecase"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// setupTestRouter creates a router backed by a seeded temp-dir store
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	seedStore(t, store)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
	}

	grouping := usecase.NewGroupingService(usecase.NewMatchingService(usecase.MatchConfig{}), 0, false)
	compare := usecase.NewCompareService(store, grouping, usecase.CompareServiceConfig{})
	drops := usecase.NewPriceDropService(usecase.PriceDropConfig{})

	handler := NewHandler(compare, drops, store, usecase.DefaultDropParams())
	handler.now = func() time.Time { return fixedNow }

	return SetupRouter(cfg, handler)
}

func seedStore(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	offers := []domain.Offer{
		{ID: "j-1", Title: "iPhone 13 128GB", Price: 60, Currency: "NGN", Marketplace: domain.MarketplaceJumia, IsAvailable: true},
		{ID: "a-1", Title: "iPhone 13 128Go", Price: 62, Currency: "NGN", Marketplace: domain.MarketplaceAmazon},
		{ID: "j-2", Title: "Samsung Galaxy A14", Price: 90, Currency: "NGN", Marketplace: domain.MarketplaceJumia, IsAvailable: true},
	}
	for _, o := range offers {
		require.NoError(t, store.SaveOffer(ctx, o))
	}

	series := map[string][]float64{
		"j-1": {100, 100, 100, 60},
		"j-2": {90, 92, 88, 90},
	}
	for id, prices := range series {
		for i, p := range prices {
			require.NoError(t, store.AddObservation(ctx, id, domain.PriceObservation{
				Timestamp: fixedNow.AddDate(0, 0, i-len(prices)+1),
				Price:     p,
				Currency:  "NGN",
			}))
		}
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func price(p float64) *float64 { return &p }

func TestHealthCheckEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "pricelens-backend", resp["service"])
	assert.Equal(t, "ok", resp["storage"])
}

func TestCompareEndpoint_SuppliedOffers(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/products/compare", CompareRequest{
		Offers: []OfferDTO{
			{ID: "1", Title: "iPhone 13 128GB", Price: price(500000), Marketplace: "jumia"},
			{ID: "2", Title: "iPhone 13 128Go", Price: price(510000), Marketplace: "amazon"},
			{ID: "3", Title: "Samsung A14", Price: price(90000), Marketplace: "jumia"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[CompareResponse](t, w)
	require.Equal(t, 2, resp.Count)

	assert.Equal(t, "samsung", resp.Groups[0].Brand)
	iphone := resp.Groups[1]
	assert.Equal(t, "apple", iphone.Brand)
	assert.Equal(t, 2, iphone.OfferCount)
	require.NotNil(t, iphone.BestPrice)
	assert.Equal(t, 500000.0, *iphone.BestPrice)
	require.NotNil(t, iphone.MaxPrice)
	assert.Equal(t, 510000.0, *iphone.MaxPrice)
	require.NotNil(t, iphone.Attributes.CapacityGB)
	assert.Equal(t, 128, *iphone.Attributes.CapacityGB)
	assert.Equal(t, "jumia", iphone.Offers[0].Marketplace)
}

func TestCompareEndpoint_MissingPrice(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/products/compare", CompareRequest{
		Offers: []OfferDTO{{ID: "1", Title: "Nokia 105"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[CompareResponse](t, w)
	require.Len(t, resp.Groups, 1)
	assert.Nil(t, resp.Groups[0].BestPrice)
	assert.Nil(t, resp.Groups[0].Offers[0].Price)
}

func TestCompareEndpoint_FromStorage(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/products/compare", CompareRequest{Query: "iphone 13"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[CompareResponse](t, w)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, 2, resp.Groups[0].OfferCount)
}

func TestCompareEndpoint_Errors(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"empty request", CompareRequest{}, http.StatusBadRequest},
		{"malformed json", `{"query":`, http.StatusBadRequest},
		{"threshold out of range", CompareRequest{Query: "iphone", Threshold: 1.5}, http.StatusBadRequest},
		{"nothing matches", CompareRequest{Query: "pixel"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/products/compare", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, decode[map[string]any](t, w), "error")
		})
	}
}

func TestPriceDropsEndpoint_FromStorage(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/prices/drops", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[PriceDropsResponse](t, w)
	assert.Equal(t, 30, resp.WindowDays)
	require.Equal(t, 1, resp.Count)

	item := resp.Items[0]
	assert.Equal(t, "j-1", item.ProductID)
	assert.Equal(t, "iPhone 13 128GB", item.Name)
	assert.Equal(t, "jumia", item.Marketplace)
	assert.Equal(t, 40.0, item.DropPct)
	assert.Equal(t, 60.0, item.CurrentPrice)
	assert.Nil(t, item.ZScore)
	require.NotNil(t, item.LastChangeAt)
	assert.True(t, fixedNow.Equal(*item.LastChangeAt))
}

func TestPriceDropsEndpoint_SuppliedProducts(t *testing.T) {
	router := setupTestRouter(t)

	history := func(prices ...float64) []ObservationDTO {
		out := make([]ObservationDTO, len(prices))
		for i, p := range prices {
			out[i] = ObservationDTO{Timestamp: fixedNow.AddDate(0, 0, i-len(prices)+1), Price: p}
		}
		return out
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/prices/drops", PriceDropsRequest{
		MinDropPct: price(20),
		Products: []TrackedProductDTO{
			{ID: "small", Name: "Small drop", History: history(100, 100, 85)},
			{ID: "big", Name: "Big drop", Currency: "USD", History: history(100, 100, 50)},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[PriceDropsResponse](t, w)
	assert.Equal(t, 20.0, resp.MinDropPct)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "big", resp.Items[0].ProductID)
	assert.Equal(t, "USD", resp.Items[0].Currency)
}

func TestPriceDropsEndpoint_InvalidParams(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"window too short", `{"window_days": 3}`},
		{"positive z", `{"min_z": 1}`},
		{"sample too large", `{"sample_limit": 5000}`},
		{"malformed", `[`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/prices/drops", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPriceStatsEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	t.Run("stored history", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/products/j-1/price-stats", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		stats := decode[PriceStatsDTO](t, w)
		assert.Equal(t, "j-1", stats.ProductID)
		assert.Equal(t, 60.0, stats.CurrentPrice)
		assert.Equal(t, 90.0, stats.AveragePrice)
		assert.Equal(t, 60.0, stats.LowestPrice)
		assert.Equal(t, 100.0, stats.HighestPrice)
		assert.Equal(t, "NGN", stats.Currency)
		assert.Nil(t, stats.PriceChange7d)
	})

	t.Run("unknown product", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/products/nope/price-stats", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("product without history", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/products/a-1/price-stats", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "no price history", decode[map[string]any](t, w)["error"])
	})
}

func TestAlertEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name          string
		path          string
		body          any
		wantStatus    int
		wantTriggered bool
	}{
		{"target reached", "/api/v1/products/j-1/alerts/evaluate", AlertRequest{Type: "target_price", ThresholdValue: 70}, http.StatusOK, true},
		{"target not reached", "/api/v1/products/j-1/alerts/evaluate", AlertRequest{Type: "target_price", ThresholdValue: 50}, http.StatusOK, false},
		{"drop vs previous", "/api/v1/products/j-1/alerts/evaluate", AlertRequest{Type: "percentage_drop", ThresholdValue: 30}, http.StatusOK, true},
		{"unavailable", "/api/v1/products/a-1/alerts/evaluate", AlertRequest{Type: "availability"}, http.StatusOK, false},
		{"unknown type", "/api/v1/products/j-1/alerts/evaluate", AlertRequest{Type: "weekly"}, http.StatusBadRequest, false},
		{"missing type", "/api/v1/products/j-1/alerts/evaluate", `{}`, http.StatusBadRequest, false},
		{"unknown product", "/api/v1/products/nope/alerts/evaluate", AlertRequest{Type: "availability"}, http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if w.Code == http.StatusOK {
				assert.Equal(t, tt.wantTriggered, decode[AlertResponse](t, w).Triggered)
			}
		})
	}
}

func TestAPIVersioning(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v2/products/compare", CompareRequest{Query: "iphone"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "chrome-extension://abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "chrome-extension://abc", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandlerWithoutStorage(t *testing.T) {
	grouping := usecase.NewGroupingService(usecase.NewMatchingService(usecase.MatchConfig{}), 0, false)
	handler := NewHandler(
		usecase.NewCompareService(nil, grouping, usecase.CompareServiceConfig{}),
		usecase.NewPriceDropService(usecase.PriceDropConfig{}),
		nil,
		usecase.DefaultDropParams(),
	)
	router := SetupRouter(&config.Config{}, handler)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not configured", decode[map[string]any](t, w)["storage"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/products/x/price-stats", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/prices/drops", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[PriceDropsResponse](t, w).Count)
}
