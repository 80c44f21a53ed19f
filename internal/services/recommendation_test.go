package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront-labs/recommendation-engine/internal/database"
	"github.com/storefront-labs/recommendation-engine/internal/models"
)

func newTestService(store database.Store) *RecommendationService {
	return NewRecommendationService(store, zap.NewNop().Sugar())
}

func TestFrequentlyBoughtTogether_DelegatesToCoOccurrence(t *testing.T) {
	store := database.NewMemoryStore()
	store.AddProduct(activeProduct("p1", "Energy", baseTime))
	store.AddProduct(activeProduct("p2", "Energy", baseTime))
	for i := 0; i < 5; i++ {
		store.AddOrder(order(fmt.Sprintf("o%d", i), "u1", baseTime), "p1", "p2")
	}
	svc := newTestService(store)

	results, err := svc.GetFrequentlyBoughtTogether(context.Background(), "p1", DefaultFrequentlyBoughtTogetherOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "p2", results[0].ID)
	require.Equal(t, 1.0, results[0].Score)
}

func TestFrequentlyBoughtTogether_NoOrdersFallsBackToCategory(t *testing.T) {
	store := database.NewMemoryStore()
	store.AddProduct(activeProduct("lonely", "Energy", baseTime))
	// three active category mates with distinct creation times, one inactive
	store.AddProduct(activeProduct("e1", "Energy", baseTime.Add(1*time.Hour)))
	store.AddProduct(activeProduct("e2", "Energy", baseTime.Add(2*time.Hour)))
	store.AddProduct(activeProduct("e3", "Energy", baseTime.Add(3*time.Hour)))
	dead := activeProduct("e4", "Energy", baseTime.Add(4*time.Hour))
	dead.Active = false
	store.AddProduct(dead)
	svc := newTestService(store)

	results, err := svc.GetFrequentlyBoughtTogether(context.Background(), "lonely", DefaultFrequentlyBoughtTogetherOptions())
	require.NoError(t, err)
	require.Len(t, results, 3)
	// newest first, the seed and the inactive product never appear
	require.Equal(t, []string{"e3", "e2", "e1"}, resultIDs(results))
	for _, result := range results {
		require.Equal(t, 0.5, result.Score)
	}
}

func TestFrequentlyBoughtTogether_MissingProductIsEmpty(t *testing.T) {
	svc := newTestService(database.NewMemoryStore())

	results, err := svc.GetFrequentlyBoughtTogether(context.Background(), "missing", DefaultFrequentlyBoughtTogetherOptions())
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestCategoryBased_ReturnsActiveNewestFirstWithFixedScore(t *testing.T) {
	store := database.NewMemoryStore()
	store.AddProduct(activeProduct("e1", "Energy", baseTime.Add(1*time.Hour)))
	store.AddProduct(activeProduct("e2", "Energy", baseTime.Add(2*time.Hour)))
	store.AddProduct(activeProduct("e3", "Energy", baseTime.Add(3*time.Hour)))
	dead := activeProduct("e4", "Energy", baseTime.Add(4*time.Hour))
	dead.Active = false
	store.AddProduct(dead)
	store.AddProduct(activeProduct("other", "Garden", baseTime))
	svc := newTestService(store)

	results, err := svc.GetCategoryBasedRecommendations(context.Background(), "Energy", CategoryOptions{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"e3", "e2", "e1"}, resultIDs(results))
	for _, result := range results {
		require.Equal(t, 0.5, result.Score)
	}
}

func TestCategoryBased_EmptyCategoryFallsBackToPopularity(t *testing.T) {
	store := popularityFixture()
	svc := newTestService(store)

	fromCategory, err := svc.GetCategoryBasedRecommendations(context.Background(), "   ", CategoryOptions{Limit: 10})
	require.NoError(t, err)
	popular, err := svc.getPopularProducts(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Equal(t, popular, fromCategory)
}

func TestCategoryBased_HonorsExclusions(t *testing.T) {
	store := database.NewMemoryStore()
	store.AddProduct(activeProduct("e1", "Energy", baseTime.Add(1*time.Hour)))
	store.AddProduct(activeProduct("e2", "Energy", baseTime.Add(2*time.Hour)))
	svc := newTestService(store)

	results, err := svc.GetCategoryBasedRecommendations(context.Background(), "Energy", CategoryOptions{
		Limit:             10,
		ExcludeProductIDs: []string{"e2"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"e1"}, resultIDs(results))
}

func TestPersonalized_NoOrdersMatchesPopularityFallback(t *testing.T) {
	store := popularityFixture()
	svc := newTestService(store)

	personalized, err := svc.GetPersonalizedRecommendations(context.Background(), "ghost", DefaultPersonalizedOptions())
	require.NoError(t, err)
	popular, err := svc.getPopularProducts(context.Background(), DefaultLimit, nil)
	require.NoError(t, err)
	require.Equal(t, popular, personalized)
}

func TestPersonalized_AccumulatesAcrossPurchasesAndCapsScores(t *testing.T) {
	store := coPurchaseFixture()
	svc := newTestService(store)

	results, err := svc.GetPersonalizedRecommendations(context.Background(), "u1", DefaultPersonalizedOptions())
	require.NoError(t, err)
	// C is recommended by both purchased products (0.75 + 0.75), capped at 1
	require.Equal(t, []string{"C"}, resultIDs(results))
	require.Equal(t, 1.0, results[0].Score)
}

func TestPersonalized_PurchasedAndExcludedProductsNeverReturned(t *testing.T) {
	store := coPurchaseFixture()
	svc := newTestService(store)

	opts := DefaultPersonalizedOptions()
	results, err := svc.GetPersonalizedRecommendations(context.Background(), "u1", opts)
	require.NoError(t, err)
	for _, result := range results {
		require.NotContains(t, []string{"A", "B"}, result.ID)
	}

	// excluding the only candidate degrades to popularity, still without C
	opts.ExcludeProductIDs = []string{"C"}
	results, err = svc.GetPersonalizedRecommendations(context.Background(), "u1", opts)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, result := range results {
		require.NotEqual(t, "C", result.ID)
	}
}

func TestCart_EmptyCartMatchesPopularityFallback(t *testing.T) {
	store := popularityFixture()
	svc := newTestService(store)

	fromCart, err := svc.GetCartRecommendations(context.Background(), nil, CartOptions{Limit: 5})
	require.NoError(t, err)
	popular, err := svc.getPopularProducts(context.Background(), 5, nil)
	require.NoError(t, err)
	require.Equal(t, popular, fromCart)
}

func TestCart_AccumulationIsOrderIndependent(t *testing.T) {
	store := coPurchaseFixture()
	svc := newTestService(store)

	forward, err := svc.GetCartRecommendations(context.Background(), []string{"A", "B"}, DefaultCartOptions())
	require.NoError(t, err)
	backward, err := svc.GetCartRecommendations(context.Background(), []string{"B", "A"}, DefaultCartOptions())
	require.NoError(t, err)
	require.Equal(t, forward, backward)

	require.Equal(t, []string{"C"}, resultIDs(forward))
	require.Equal(t, 1.0, forward[0].Score)
}

func TestCart_NoCandidatesFallsBackToPopularityExcludingCart(t *testing.T) {
	store := coPurchaseFixture()
	svc := newTestService(store)

	results, err := svc.GetCartRecommendations(context.Background(), []string{"A", "B"}, CartOptions{
		Limit:             10,
		ExcludeProductIDs: []string{"C"},
	})
	require.NoError(t, err)
	// the fixture catalog is only A, B and C, all excluded here
	require.Empty(t, results)
}

func TestOrderHistory_DelegatesToPersonalized(t *testing.T) {
	store := coPurchaseFixture()
	svc := newTestService(store)

	fromHistory, err := svc.GetOrderHistoryRecommendations(context.Background(), "u1", DefaultPersonalizedOptions())
	require.NoError(t, err)
	personalized, err := svc.GetPersonalizedRecommendations(context.Background(), "u1", DefaultPersonalizedOptions())
	require.NoError(t, err)
	require.Equal(t, personalized, fromHistory)
}

func TestPopularity_NormalizesByPreExclusionMaxCount(t *testing.T) {
	store := popularityFixture()
	svc := newTestService(store)

	// PA leads with 10 orders, PB trails with 6; excluding PA must not
	// promote PB's score to 1.0
	results, err := svc.getPopularProducts(context.Background(), 10, []string{"PA"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "PB", results[0].ID)
	require.Equal(t, 0.6, results[0].Score)
	for _, result := range results {
		require.NotEqual(t, "PA", result.ID)
	}
}

func TestPopularity_ColdStoreFallsBackToRecentProducts(t *testing.T) {
	store := database.NewMemoryStore()
	store.AddProduct(activeProduct("new1", "Energy", baseTime.Add(1*time.Hour)))
	store.AddProduct(activeProduct("new2", "Energy", baseTime.Add(2*time.Hour)))
	svc := newTestService(store)

	results, err := svc.getPopularProducts(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"new2", "new1"}, resultIDs(results))
	for _, result := range results {
		require.Equal(t, 0.3, result.Score)
	}
}

func TestPopularity_EmptyStoreReturnsEmptyList(t *testing.T) {
	svc := newTestService(database.NewMemoryStore())

	results, err := svc.getPopularProducts(context.Background(), 10, nil)
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}

// popularityFixture seeds a catalog where PA appears in 10 orders and PB
// in 6, with no co-occurrence signal strong enough for the analyzer.
func popularityFixture() *database.MemoryStore {
	store := database.NewMemoryStore()
	store.AddProduct(activeProduct("PA", "Energy", baseTime))
	store.AddProduct(activeProduct("PB", "Garden", baseTime))
	for i := 0; i < 10; i++ {
		store.AddOrder(order(fmt.Sprintf("pa%d", i), fmt.Sprintf("u%d", i), baseTime), "PA")
	}
	for i := 0; i < 6; i++ {
		store.AddOrder(order(fmt.Sprintf("pb%d", i), fmt.Sprintf("v%d", i), baseTime), "PB")
	}
	return store
}

// coPurchaseFixture seeds user u1 with purchases of A and B, where both A
// and B each co-occur with C in 3 of their 4 orders (confidence 0.75).
func coPurchaseFixture() *database.MemoryStore {
	store := database.NewMemoryStore()
	store.AddProduct(activeProduct("A", "Energy", baseTime))
	store.AddProduct(activeProduct("B", "Energy", baseTime))
	store.AddProduct(activeProduct("C", "Energy", baseTime))
	store.AddOrder(order("u1-a", "u1", baseTime), "A")
	store.AddOrder(order("u1-b", "u1", baseTime), "B")
	for i := 0; i < 3; i++ {
		store.AddOrder(order(fmt.Sprintf("ac%d", i), fmt.Sprintf("x%d", i), baseTime), "A", "C")
		store.AddOrder(order(fmt.Sprintf("bc%d", i), fmt.Sprintf("y%d", i), baseTime), "B", "C")
	}
	return store
}

func resultIDs(results []models.RecommendationResult) []string {
	ids := make([]string, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.ID)
	}
	return ids
}
