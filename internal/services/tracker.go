package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/recommendation-engine/internal/models"
)

// TrackEventInput describes one recommendation interaction to record.
type TrackEventInput struct {
	UserID               *string
	ProductID            string
	RecommendedProductID string
	EventType            models.EventType
	RecommendationType   models.RecommendationType
	Metadata             map[string]any
}

// TrackRecommendationEvent appends an event row and bumps the matching
// counter on the stats aggregate for the (product, recommended product,
// recommendation type) key. The counter update is an atomic upsert in the
// store, so concurrent trackers for the same key never lose updates.
//
// Callers on a consumption path should invoke this fire-and-forget: a
// tracking failure is an error of the tracking call only and must not
// fail the user action it is attached to.
func (s *RecommendationService) TrackRecommendationEvent(ctx context.Context, input TrackEventInput) error {
	if !input.EventType.Valid() {
		return fmt.Errorf("invalid event type %q", input.EventType)
	}
	if !input.RecommendationType.Valid() {
		return fmt.Errorf("invalid recommendation type %q", input.RecommendationType)
	}

	event := &models.RecommendationEvent{
		ID:                   uuid.NewString(),
		UserID:               input.UserID,
		ProductID:            input.ProductID,
		RecommendedProductID: input.RecommendedProductID,
		EventType:            input.EventType,
		RecommendationType:   input.RecommendationType,
		Metadata:             input.Metadata,
		CreatedAt:            time.Now().UTC(),
	}

	if err := s.store.InsertRecommendationEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record recommendation event: %w", err)
	}

	if err := s.store.UpsertRecommendationStats(ctx, input.ProductID, input.RecommendedProductID, input.RecommendationType, input.EventType); err != nil {
		return fmt.Errorf("failed to update recommendation stats: %w", err)
	}

	s.log.Debugw("tracked recommendation event",
		"product_id", input.ProductID,
		"recommended_product_id", input.RecommendedProductID,
		"event_type", input.EventType,
		"recommendation_type", input.RecommendationType)
	return nil
}

// GetRecommendationStats returns the running counters for one tracked key,
// or (nil, nil) when nothing has been tracked for it yet.
func (s *RecommendationService) GetRecommendationStats(ctx context.Context, productID, recommendedProductID string, recType models.RecommendationType) (*models.RecommendationStats, error) {
	return s.store.FindRecommendationStats(ctx, productID, recommendedProductID, recType)
}
