package services

import (
	"context"
	"sort"

	"github.com/storefront-labs/recommendation-engine/internal/models"
)

// computeCoOccurrence finds products frequently appearing in the same
// orders as the seed product and scores each by confidence: the candidate's
// co-occurrence count divided by the number of orders containing the seed.
// The measure is directional lift toward the seed, not a symmetric
// similarity.
//
// Candidates survive only when their count is strictly greater than
// MinCoOccurrence and their confidence reaches MinConfidence. Any
// no-signal condition (unknown or inactive seed, no orders) returns an
// empty list so the caller can pick a fallback.
func (s *RecommendationService) computeCoOccurrence(ctx context.Context, seedProductID string, opts CoOccurrenceOptions) ([]models.RecommendationResult, error) {
	opts = opts.normalized()

	seed, err := s.store.FindProductByID(ctx, seedProductID)
	if err != nil {
		return nil, err
	}
	if seed == nil || !seed.Active {
		return noRecommendations(), nil
	}

	orderIDs, err := s.store.FindOrderIDsContainingProduct(ctx, seedProductID)
	if err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		return noRecommendations(), nil
	}

	counts, err := s.store.CountCoOccurringProducts(ctx, orderIDs, seedProductID, opts.MinCoOccurrence, opts.MaxCandidates)
	if err != nil {
		return nil, err
	}

	seedOrderCount := float64(len(orderIDs))
	candidates := make([]scoredID, 0, len(counts))
	for _, count := range counts {
		confidence := float64(count.Count) / seedOrderCount
		if confidence < opts.MinConfidence {
			continue
		}
		candidates = append(candidates, scoredID{id: count.ProductID, score: confidence})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > opts.MaxCandidates {
		candidates = candidates[:opts.MaxCandidates]
	}

	return s.resolveResults(ctx, candidates, false)
}
