package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront-labs/recommendation-engine/internal/models"
	"github.com/storefront-labs/recommendation-engine/internal/services"
)

// APIHandler exposes the recommendation engine over HTTP
type APIHandler struct {
	recommendationService *services.RecommendationService
	health                func(context.Context) error
	log                   *zap.SugaredLogger
}

// NewAPIHandler creates a new API handler. health may be nil when the
// backing store has no connectivity to check.
func NewAPIHandler(recommendationService *services.RecommendationService, health func(context.Context) error, log *zap.SugaredLogger) *APIHandler {
	return &APIHandler{
		recommendationService: recommendationService,
		health:                health,
		log:                   log,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.GetHealth)

	api := router.Group("/api")
	{
		api.GET("/recommendations/frequently-bought-together/:productId", h.GetFrequentlyBoughtTogether)
		api.GET("/recommendations/personalized/:userId", h.GetPersonalizedRecommendations)
		api.GET("/recommendations/category/:category", h.GetCategoryBasedRecommendations)
		api.POST("/recommendations/cart", h.GetCartRecommendations)
		api.GET("/recommendations/order-history/:userId", h.GetOrderHistoryRecommendations)
		api.POST("/recommendations/events", h.TrackRecommendationEvent)
		api.GET("/recommendations/stats/:productId/:recommendedProductId", h.GetRecommendationStats)
	}
}

// GetHealth reports service and storage health
func (h *APIHandler) GetHealth(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.log.Errorw("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetFrequentlyBoughtTogether handles requests for products frequently
// bought together with a given product
func (h *APIHandler) GetFrequentlyBoughtTogether(c *gin.Context) {
	productID := c.Param("productId")

	opts := services.DefaultFrequentlyBoughtTogetherOptions()
	if !h.intQuery(c, "minCoOccurrence", &opts.MinCoOccurrence) ||
		!h.floatQuery(c, "minConfidence", &opts.MinConfidence) ||
		!h.intQuery(c, "maxResults", &opts.MaxResults) {
		return
	}

	recommendations, err := h.recommendationService.GetFrequentlyBoughtTogether(c.Request.Context(), productID, opts)
	if err != nil {
		h.fail(c, "frequently bought together", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":      productID,
		"recommendations": recommendations,
		"strategy":        models.RecommendationFrequentlyBoughtTogether,
	})
}

// GetPersonalizedRecommendations handles requests for a user's
// personalized recommendations
func (h *APIHandler) GetPersonalizedRecommendations(c *gin.Context) {
	userID := c.Param("userId")

	opts := services.DefaultPersonalizedOptions()
	if !h.intQuery(c, "limit", &opts.Limit) || !h.floatQuery(c, "minScore", &opts.MinScore) {
		return
	}
	opts.ExcludeProductIDs = listQuery(c, "exclude")

	recommendations, err := h.recommendationService.GetPersonalizedRecommendations(c.Request.Context(), userID, opts)
	if err != nil {
		h.fail(c, "personalized", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         userID,
		"recommendations": recommendations,
		"strategy":        models.RecommendationPersonalized,
	})
}

// GetCategoryBasedRecommendations handles requests for recommendations
// within a category
func (h *APIHandler) GetCategoryBasedRecommendations(c *gin.Context) {
	category := c.Param("category")

	opts := services.DefaultCategoryOptions()
	if !h.intQuery(c, "limit", &opts.Limit) {
		return
	}
	opts.ExcludeProductIDs = listQuery(c, "exclude")

	recommendations, err := h.recommendationService.GetCategoryBasedRecommendations(c.Request.Context(), category, opts)
	if err != nil {
		h.fail(c, "category based", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category":        category,
		"recommendations": recommendations,
		"strategy":        models.RecommendationCategoryBased,
	})
}

type cartRecommendationsRequest struct {
	ProductIDs        []string `json:"product_ids"`
	Limit             int      `json:"limit"`
	ExcludeProductIDs []string `json:"exclude_product_ids"`
}

// GetCartRecommendations handles requests for recommendations based on the
// current cart contents. An empty cart is valid and yields the popularity
// fallback.
func (h *APIHandler) GetCartRecommendations(c *gin.Context) {
	var req cartRecommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	opts := services.DefaultCartOptions()
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}
	opts.ExcludeProductIDs = req.ExcludeProductIDs

	recommendations, err := h.recommendationService.GetCartRecommendations(c.Request.Context(), req.ProductIDs, opts)
	if err != nil {
		h.fail(c, "cart", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart_product_ids": req.ProductIDs,
		"recommendations":  recommendations,
		"strategy":         models.RecommendationCartRelated,
	})
}

// GetOrderHistoryRecommendations handles requests for recommendations
// based on a user's order history
func (h *APIHandler) GetOrderHistoryRecommendations(c *gin.Context) {
	userID := c.Param("userId")

	opts := services.DefaultPersonalizedOptions()
	if !h.intQuery(c, "limit", &opts.Limit) || !h.floatQuery(c, "minScore", &opts.MinScore) {
		return
	}
	opts.ExcludeProductIDs = listQuery(c, "exclude")

	recommendations, err := h.recommendationService.GetOrderHistoryRecommendations(c.Request.Context(), userID, opts)
	if err != nil {
		h.fail(c, "order history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         userID,
		"recommendations": recommendations,
		"strategy":        models.RecommendationOrderRelated,
	})
}

type trackEventRequest struct {
	UserID               *string        `json:"user_id"`
	ProductID            string         `json:"product_id" binding:"required"`
	RecommendedProductID string         `json:"recommended_product_id" binding:"required"`
	EventType            string         `json:"event_type" binding:"required,oneof=view click conversion"`
	RecommendationType   string         `json:"recommendation_type" binding:"required,oneof=frequently_bought_together personalized category_based cart_related order_related"`
	Metadata             map[string]any `json:"metadata"`
}

// TrackRecommendationEvent records a view/click/conversion against a shown
// recommendation
func (h *APIHandler) TrackRecommendationEvent(c *gin.Context) {
	var req trackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	err := h.recommendationService.TrackRecommendationEvent(c.Request.Context(), services.TrackEventInput{
		UserID:               req.UserID,
		ProductID:            req.ProductID,
		RecommendedProductID: req.RecommendedProductID,
		EventType:            models.EventType(req.EventType),
		RecommendationType:   models.RecommendationType(req.RecommendationType),
		Metadata:             req.Metadata,
	})
	if err != nil {
		h.fail(c, "event tracking", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

// GetRecommendationStats returns the running counters for one tracked
// (product, recommended product, recommendation type) key
func (h *APIHandler) GetRecommendationStats(c *gin.Context) {
	productID := c.Param("productId")
	recommendedProductID := c.Param("recommendedProductId")
	recType := models.RecommendationType(c.Query("type"))
	if !recType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recommendation type"})
		return
	}

	stats, err := h.recommendationService.GetRecommendationStats(c.Request.Context(), productID, recommendedProductID, recType)
	if err != nil {
		h.fail(c, "stats lookup", err)
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stats tracked for this key"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) fail(c *gin.Context, operation string, err error) {
	h.log.Errorw("request failed", "operation", operation, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recommendations"})
}

// intQuery overwrites dst when the query param is present; a malformed
// value aborts the request with a 400.
func (h *APIHandler) intQuery(c *gin.Context, name string, dst *int) bool {
	raw := c.Query(name)
	if raw == "" {
		return true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return false
	}
	*dst = parsed
	return true
}

func (h *APIHandler) floatQuery(c *gin.Context, name string, dst *float64) bool {
	raw := c.Query(name)
	if raw == "" {
		return true
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return false
	}
	*dst = parsed
	return true
}

// listQuery parses a comma-separated query param into a slice, dropping
// empty entries.
func listQuery(c *gin.Context, name string) []string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	var values []string
	for _, value := range strings.Split(raw, ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
}
