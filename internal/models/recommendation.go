package models

import "time"

// Fallback values applied when a product carries no image or category.
// Applied at result construction only, never written back to the catalog.
const (
	PlaceholderImageURL = "/images/placeholder.png"
	UncategorizedLabel  = "Uncategorized"
)

// EventType classifies a tracked recommendation interaction.
type EventType string

const (
	EventTypeView       EventType = "view"
	EventTypeClick      EventType = "click"
	EventTypeConversion EventType = "conversion"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeView, EventTypeClick, EventTypeConversion:
		return true
	}
	return false
}

// RecommendationType identifies the strategy that produced a recommendation.
type RecommendationType string

const (
	RecommendationFrequentlyBoughtTogether RecommendationType = "frequently_bought_together"
	RecommendationPersonalized             RecommendationType = "personalized"
	RecommendationCategoryBased            RecommendationType = "category_based"
	RecommendationCartRelated              RecommendationType = "cart_related"
	RecommendationOrderRelated             RecommendationType = "order_related"
)

// Valid reports whether t is one of the known recommendation types.
func (t RecommendationType) Valid() bool {
	switch t {
	case RecommendationFrequentlyBoughtTogether,
		RecommendationPersonalized,
		RecommendationCategoryBased,
		RecommendationCartRelated,
		RecommendationOrderRelated:
		return true
	}
	return false
}

// RecommendationResult is a scored product as returned to callers.
// Computed per request, never persisted. Score is always within [0,1].
type RecommendationResult struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// NewRecommendationResult builds a result record from a catalog product,
// substituting the placeholder image and category label for absent fields.
func NewRecommendationResult(p Product, score float64) RecommendationResult {
	image := PlaceholderImageURL
	if p.Image != nil && *p.Image != "" {
		image = *p.Image
	}
	category := UncategorizedLabel
	if p.Category != nil && *p.Category != "" {
		category = *p.Category
	}
	return RecommendationResult{
		ID:       p.ID,
		Name:     p.Name,
		Image:    image,
		Price:    p.Price,
		Category: category,
		Score:    score,
	}
}

// RecommendationEvent is one tracked interaction with a shown
// recommendation. Append-only; rows are never mutated or deleted.
type RecommendationEvent struct {
	ID                   string             `json:"id"`
	UserID               *string            `json:"user_id,omitempty"`
	ProductID            string             `json:"product_id"`
	RecommendedProductID string             `json:"recommended_product_id"`
	EventType            EventType          `json:"event_type"`
	RecommendationType   RecommendationType `json:"recommendation_type"`
	Metadata             map[string]any     `json:"metadata,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
}

// RecommendationStats holds running interaction counters for one
// (product, recommended product, recommendation type) key. At most one
// stats row exists per key.
type RecommendationStats struct {
	ProductID            string             `json:"product_id"`
	RecommendedProductID string             `json:"recommended_product_id"`
	RecommendationType   RecommendationType `json:"recommendation_type"`
	ViewCount            int                `json:"view_count"`
	ClickCount           int                `json:"click_count"`
	ConversionCount      int                `json:"conversion_count"`
	LastUpdatedAt        time.Time          `json:"last_updated_at"`
}
