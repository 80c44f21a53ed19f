package database

import (
	"context"

	"github.com/storefront-labs/recommendation-engine/internal/models"
)

// Store is the data-access boundary the recommendation engine depends on.
// Read methods report "not found" as a nil record with a nil error; a
// non-nil error always means the underlying data access failed and must be
// propagated by the caller unchanged.
//
// Implementations: Neo4jStore (production) and MemoryStore (dev mode and
// tests).
type Store interface {
	// FindProductByID returns the product or (nil, nil) when absent.
	FindProductByID(ctx context.Context, id string) (*models.Product, error)

	// FindProductsByIDs resolves products in any order. Unknown ids are
	// silently omitted. When activeOnly is set, inactive products are
	// omitted as well.
	FindProductsByIDs(ctx context.Context, ids []string, activeOnly bool) ([]models.Product, error)

	// FindProductsByCategory returns active products in the category,
	// excluding the given ids, newest-created first, capped at limit.
	FindProductsByCategory(ctx context.Context, category string, excludeIDs []string, limit int) ([]models.Product, error)

	// FindRecentActiveProducts returns the most recently created active
	// products, excluding the given ids, capped at limit.
	FindRecentActiveProducts(ctx context.Context, excludeIDs []string, limit int) ([]models.Product, error)

	// FindOrderIDsContainingProduct returns every order the product
	// appears in.
	FindOrderIDsContainingProduct(ctx context.Context, productID string) ([]string, error)

	// CountCoOccurringProducts counts, per product, the orders among
	// orderIDs that contain it, excluding excludeProductID. Only products
	// whose count is strictly greater than minCount are returned, ordered
	// by count descending, capped at limit. An order contributes at most
	// once per product regardless of line-item quantity.
	CountCoOccurringProducts(ctx context.Context, orderIDs []string, excludeProductID string, minCount, limit int) ([]models.ProductCount, error)

	// CountProductOccurrencesGlobally counts, per product, the orders it
	// appears in across the whole order history, ordered by count
	// descending, capped at limit.
	CountProductOccurrencesGlobally(ctx context.Context, limit int) ([]models.ProductCount, error)

	// FindOrderIDsForUser returns every order the user has placed.
	FindOrderIDsForUser(ctx context.Context, userID string) ([]string, error)

	// FindProductIDsInOrders returns the de-duplicated set of product ids
	// appearing in the given orders.
	FindProductIDsInOrders(ctx context.Context, orderIDs []string) ([]string, error)

	// FindRecommendationStats returns the stats row for the key or
	// (nil, nil) when no event has been tracked for it yet.
	FindRecommendationStats(ctx context.Context, productID, recommendedProductID string, recType models.RecommendationType) (*models.RecommendationStats, error)

	// UpsertRecommendationStats increments the counter matching eventType
	// for the key, creating the row with that counter at 1 when absent,
	// and refreshes its last-updated timestamp. The increment-or-create
	// must be atomic per key; concurrent calls for the same key must not
	// lose updates.
	UpsertRecommendationStats(ctx context.Context, productID, recommendedProductID string, recType models.RecommendationType, eventType models.EventType) error

	// InsertRecommendationEvent appends one event row.
	InsertRecommendationEvent(ctx context.Context, event *models.RecommendationEvent) error
}
