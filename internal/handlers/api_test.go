package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront-labs/recommendation-engine/internal/database"
	"github.com/storefront-labs/recommendation-engine/internal/models"
	"github.com/storefront-labs/recommendation-engine/internal/services"
)

func newTestRouter(store database.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	svc := services.NewRecommendationService(store, log)
	handler := NewAPIHandler(svc, nil, log)
	router := gin.New()
	handler.SetupRoutes(router)
	return router
}

func seededStore() *database.MemoryStore {
	store := database.NewMemoryStore()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	category := "Energy"
	for _, id := range []string{"p1", "p2", "p3"} {
		store.AddProduct(models.Product{
			ID:        id,
			Name:      "Product " + id,
			Price:     12.5,
			Category:  &category,
			Stock:     5,
			Active:    true,
			CreatedAt: createdAt,
		})
		createdAt = createdAt.Add(time.Hour)
	}
	for i := 0; i < 5; i++ {
		store.AddOrder(models.Order{
			ID:        fmt.Sprintf("o%d", i),
			UserID:    fmt.Sprintf("u%d", i),
			CreatedAt: createdAt,
		}, "p1", "p2")
	}
	return store
}

type recommendationsEnvelope struct {
	Recommendations []models.RecommendationResult `json:"recommendations"`
	Strategy        string                        `json:"strategy"`
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(database.NewMemoryStore())

	recorder := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestFrequentlyBoughtTogetherEndpoint(t *testing.T) {
	router := newTestRouter(seededStore())

	recorder := doRequest(t, router, http.MethodGet, "/api/recommendations/frequently-bought-together/p1", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope recommendationsEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Equal(t, string(models.RecommendationFrequentlyBoughtTogether), envelope.Strategy)
	require.Len(t, envelope.Recommendations, 1)
	require.Equal(t, "p2", envelope.Recommendations[0].ID)
	require.Equal(t, 1.0, envelope.Recommendations[0].Score)
}

func TestFrequentlyBoughtTogetherEndpoint_RejectsBadParams(t *testing.T) {
	router := newTestRouter(seededStore())

	recorder := doRequest(t, router, http.MethodGet, "/api/recommendations/frequently-bought-together/p1?minConfidence=abc", nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doRequest(t, router, http.MethodGet, "/api/recommendations/frequently-bought-together/p1?maxResults=x", nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPersonalizedEndpoint_UnknownUserStillReturnsList(t *testing.T) {
	router := newTestRouter(seededStore())

	recorder := doRequest(t, router, http.MethodGet, "/api/recommendations/personalized/ghost?limit=2", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope recommendationsEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	// popularity fallback, never null
	require.NotNil(t, envelope.Recommendations)
	require.LessOrEqual(t, len(envelope.Recommendations), 2)
}

func TestCategoryEndpoint_AppliesExclusions(t *testing.T) {
	router := newTestRouter(seededStore())

	recorder := doRequest(t, router, http.MethodGet, "/api/recommendations/category/Energy?exclude=p1,p2", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope recommendationsEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Len(t, envelope.Recommendations, 1)
	require.Equal(t, "p3", envelope.Recommendations[0].ID)
	require.Equal(t, 0.5, envelope.Recommendations[0].Score)
}

func TestCartEndpoint_EmptyCartIsValid(t *testing.T) {
	router := newTestRouter(seededStore())

	recorder := doRequest(t, router, http.MethodPost, "/api/recommendations/cart", map[string]any{})
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope recommendationsEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Recommendations)
}

func TestCartEndpoint_RecommendsFromCart(t *testing.T) {
	router := newTestRouter(seededStore())

	recorder := doRequest(t, router, http.MethodPost, "/api/recommendations/cart", map[string]any{
		"product_ids": []string{"p1"},
		"limit":       5,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope recommendationsEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Len(t, envelope.Recommendations, 1)
	require.Equal(t, "p2", envelope.Recommendations[0].ID)
}

func TestOrderHistoryEndpoint_MatchesPersonalized(t *testing.T) {
	router := newTestRouter(seededStore())

	fromHistory := doRequest(t, router, http.MethodGet, "/api/recommendations/order-history/u0", nil)
	require.Equal(t, http.StatusOK, fromHistory.Code)

	var envelope recommendationsEnvelope
	require.NoError(t, json.Unmarshal(fromHistory.Body.Bytes(), &envelope))
	require.Equal(t, string(models.RecommendationOrderRelated), envelope.Strategy)
}

func TestTrackEventEndpoint(t *testing.T) {
	store := seededStore()
	router := newTestRouter(store)

	payload := map[string]any{
		"product_id":             "p1",
		"recommended_product_id": "p2",
		"event_type":             "click",
		"recommendation_type":    "frequently_bought_together",
	}
	recorder := doRequest(t, router, http.MethodPost, "/api/recommendations/events", payload)
	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.Len(t, store.Events(), 1)

	statsRecorder := doRequest(t, router, http.MethodGet, "/api/recommendations/stats/p1/p2?type=frequently_bought_together", nil)
	require.Equal(t, http.StatusOK, statsRecorder.Code)

	var stats models.RecommendationStats
	require.NoError(t, json.Unmarshal(statsRecorder.Body.Bytes(), &stats))
	require.Equal(t, 1, stats.ClickCount)
	require.Equal(t, 0, stats.ViewCount)
}

func TestTrackEventEndpoint_RejectsInvalidPayloads(t *testing.T) {
	store := seededStore()
	router := newTestRouter(store)

	// unknown event type fails binding validation
	recorder := doRequest(t, router, http.MethodPost, "/api/recommendations/events", map[string]any{
		"product_id":             "p1",
		"recommended_product_id": "p2",
		"event_type":             "hover",
		"recommendation_type":    "frequently_bought_together",
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// missing required fields
	recorder = doRequest(t, router, http.MethodPost, "/api/recommendations/events", map[string]any{
		"event_type": "view",
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	require.Empty(t, store.Events())
}

func TestStatsEndpoint_UnknownKeyAndBadType(t *testing.T) {
	router := newTestRouter(seededStore())

	recorder := doRequest(t, router, http.MethodGet, "/api/recommendations/stats/p1/p2?type=personalized", nil)
	require.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = doRequest(t, router, http.MethodGet, "/api/recommendations/stats/p1/p2?type=editorial", nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
