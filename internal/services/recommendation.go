package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront-labs/recommendation-engine/internal/database"
	"github.com/storefront-labs/recommendation-engine/internal/models"
)

// Fixed scores for strategies that carry no learned ranking signal.
const (
	categoryScore       = 0.5
	recentFallbackScore = 0.3
)

// RecommendationService computes product recommendations from order
// history. Every call re-derives its answer from current storage state;
// the service holds no state of its own between calls.
//
// Insufficient signal (unknown product, no orders, empty cart) is never an
// error: each strategy degrades through its fallback chain and ultimately
// returns an empty list. Only data-access failures surface as errors.
type RecommendationService struct {
	store database.Store
	log   *zap.SugaredLogger
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(store database.Store, log *zap.SugaredLogger) *RecommendationService {
	return &RecommendationService{
		store: store,
		log:   log,
	}
}

// GetFrequentlyBoughtTogether recommends products frequently appearing in
// the same orders as the given product. A product without any order
// history falls back to category-based recommendations for its own
// category, capped at five results.
func (s *RecommendationService) GetFrequentlyBoughtTogether(ctx context.Context, productID string, opts FrequentlyBoughtTogetherOptions) ([]models.RecommendationResult, error) {
	opts = opts.normalized()

	product, err := s.store.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Active {
		return noRecommendations(), nil
	}

	orderIDs, err := s.store.FindOrderIDsContainingProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		limit := opts.MaxResults
		if limit > 5 {
			limit = 5
		}
		category := ""
		if product.Category != nil {
			category = *product.Category
		}
		return s.GetCategoryBasedRecommendations(ctx, category, CategoryOptions{
			Limit:             limit,
			ExcludeProductIDs: []string{productID},
		})
	}

	return s.computeCoOccurrence(ctx, productID, CoOccurrenceOptions{
		MinCoOccurrence: opts.MinCoOccurrence,
		MinConfidence:   opts.MinConfidence,
		MaxCandidates:   opts.MaxResults,
	})
}

// GetPersonalizedRecommendations recommends products based on everything
// the user has purchased: each purchased product contributes its
// frequently-bought-together candidates, and a candidate recommended by
// many purchased products accumulates a higher score. Users without
// purchase history fall back to global popularity.
func (s *RecommendationService) GetPersonalizedRecommendations(ctx context.Context, userID string, opts PersonalizedOptions) ([]models.RecommendationResult, error) {
	opts = opts.normalized()
	s.log.Debugw("generating personalized recommendations", "user_id", userID, "limit", opts.Limit)

	orderIDs, err := s.store.FindOrderIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		return s.getPopularProducts(ctx, opts.Limit, opts.ExcludeProductIDs)
	}

	purchasedIDs, err := s.store.FindProductIDsInOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	if len(purchasedIDs) == 0 {
		return s.getPopularProducts(ctx, opts.Limit, opts.ExcludeProductIDs)
	}

	skip := toIDSet(purchasedIDs)
	for _, id := range opts.ExcludeProductIDs {
		skip[id] = true
	}

	scores, err := s.accumulateCoPurchases(ctx, purchasedIDs, opts.MinScore, skip)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return s.getPopularProducts(ctx, opts.Limit, opts.ExcludeProductIDs)
	}

	return s.resolveResults(ctx, topScored(scores, opts.Limit), true)
}

// GetCategoryBasedRecommendations returns the newest active products in a
// category, each with a fixed score; the ranking signal here is recency
// only. An empty category falls back to global popularity.
func (s *RecommendationService) GetCategoryBasedRecommendations(ctx context.Context, category string, opts CategoryOptions) ([]models.RecommendationResult, error) {
	opts = opts.normalized()

	if strings.TrimSpace(category) == "" {
		return s.getPopularProducts(ctx, opts.Limit, opts.ExcludeProductIDs)
	}

	products, err := s.store.FindProductsByCategory(ctx, category, opts.ExcludeProductIDs, opts.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]models.RecommendationResult, 0, len(products))
	for _, product := range products {
		results = append(results, models.NewRecommendationResult(product, categoryScore))
	}
	return results, nil
}

// GetCartRecommendations recommends products to add to the given cart,
// accumulating frequently-bought-together scores across every cart item.
// An empty cart, or a cart yielding no candidates, falls back to global
// popularity.
func (s *RecommendationService) GetCartRecommendations(ctx context.Context, cartProductIDs []string, opts CartOptions) ([]models.RecommendationResult, error) {
	opts = opts.normalized()

	if len(cartProductIDs) == 0 {
		return s.getPopularProducts(ctx, opts.Limit, opts.ExcludeProductIDs)
	}

	skip := toIDSet(cartProductIDs)
	for _, id := range opts.ExcludeProductIDs {
		skip[id] = true
	}

	scores, err := s.accumulateCoPurchases(ctx, cartProductIDs, DefaultMinConfidence, skip)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		exclude := make([]string, 0, len(cartProductIDs)+len(opts.ExcludeProductIDs))
		exclude = append(exclude, cartProductIDs...)
		exclude = append(exclude, opts.ExcludeProductIDs...)
		return s.getPopularProducts(ctx, opts.Limit, exclude)
	}

	return s.resolveResults(ctx, topScored(scores, opts.Limit), true)
}

// GetOrderHistoryRecommendations currently delegates to the personalized
// strategy. Kept as a distinct entry point so the two can diverge later.
func (s *RecommendationService) GetOrderHistoryRecommendations(ctx context.Context, userID string, opts PersonalizedOptions) ([]models.RecommendationResult, error) {
	return s.GetPersonalizedRecommendations(ctx, userID, opts)
}

// getPopularProducts ranks products by how many orders they appear in
// across the whole order history. Scores are normalized by the highest
// count observed before exclusions are applied, so the globally top
// product defines 1.0 even when it is excluded from the returned set.
// A cold store with no orders falls back to the most recently created
// active products at a fixed low score.
func (s *RecommendationService) getPopularProducts(ctx context.Context, limit int, excludeIDs []string) ([]models.RecommendationResult, error) {
	counts, err := s.store.CountProductOccurrencesGlobally(ctx, limit+len(excludeIDs))
	if err != nil {
		return nil, err
	}

	if len(counts) == 0 {
		products, err := s.store.FindRecentActiveProducts(ctx, excludeIDs, limit)
		if err != nil {
			return nil, err
		}
		results := make([]models.RecommendationResult, 0, len(products))
		for _, product := range products {
			results = append(results, models.NewRecommendationResult(product, recentFallbackScore))
		}
		return results, nil
	}

	maxCount := float64(counts[0].Count)
	excluded := toIDSet(excludeIDs)
	ranked := make([]scoredID, 0, limit)
	for _, count := range counts {
		if excluded[count.ProductID] {
			continue
		}
		ranked = append(ranked, scoredID{id: count.ProductID, score: float64(count.Count) / maxCount})
		if len(ranked) == limit {
			break
		}
	}

	return s.resolveResults(ctx, ranked, false)
}

// accumulateCoPurchases sums frequently-bought-together confidences across
// the seed products, keyed by candidate id. Accumulation is a commutative
// sum, so seed order never changes the outcome. Ids in skip are never
// accumulated.
func (s *RecommendationService) accumulateCoPurchases(ctx context.Context, seedIDs []string, minConfidence float64, skip map[string]bool) (map[string]float64, error) {
	scores := make(map[string]float64)
	for _, seedID := range seedIDs {
		recommendations, err := s.GetFrequentlyBoughtTogether(ctx, seedID, FrequentlyBoughtTogetherOptions{
			MinCoOccurrence: DefaultMinCoOccurrence,
			MinConfidence:   minConfidence,
			MaxResults:      DefaultMaxResults,
		})
		if err != nil {
			return nil, err
		}
		for _, recommendation := range recommendations {
			if skip[recommendation.ID] {
				continue
			}
			scores[recommendation.ID] += recommendation.Score
		}
	}
	return scores, nil
}

// resolveResults turns ranked candidate ids into full result records,
// silently dropping candidates whose product no longer resolves or is
// inactive. When capScores is set, accumulated scores are capped at 1.0
// and the results re-sorted by final score, guarding against resolution
// order changing the ranking.
func (s *RecommendationService) resolveResults(ctx context.Context, ranked []scoredID, capScores bool) ([]models.RecommendationResult, error) {
	ids := make([]string, 0, len(ranked))
	for _, candidate := range ranked {
		ids = append(ids, candidate.id)
	}

	products, err := s.store.FindProductsByIDs(ctx, ids, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	results := make([]models.RecommendationResult, 0, len(ranked))
	for _, candidate := range ranked {
		product, ok := byID[candidate.id]
		if !ok {
			continue
		}
		score := candidate.score
		if capScores {
			score = math.Min(score, 1)
		}
		results = append(results, models.NewRecommendationResult(product, score))
	}

	if capScores {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
	return results, nil
}

type scoredID struct {
	id    string
	score float64
}

// topScored ranks accumulated scores descending and truncates to limit.
// Ties break on id so the ranking is deterministic.
func topScored(scores map[string]float64, limit int) []scoredID {
	ranked := make([]scoredID, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, scoredID{id: id, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// noRecommendations is the uniform empty value: callers always receive a
// list, never nil.
func noRecommendations() []models.RecommendationResult {
	return []models.RecommendationResult{}
}

func toIDSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
