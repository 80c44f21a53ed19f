package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storefront-labs/recommendation-engine/internal/models"
)

// Neo4jStore implements Store against the graph model
// (:User)-[:PLACED]->(:Order)-[:CONTAINS {quantity}]->(:Product), with
// (:RecommendationEvent) nodes as the append-only event log and one
// (:RecommendationStats) node per tracked key.
type Neo4jStore struct {
	client *Neo4jClient
}

// NewNeo4jStore creates a store backed by the given client
func NewNeo4jStore(client *Neo4jClient) *Neo4jStore {
	return &Neo4jStore{client: client}
}

const productReturn = `p.id AS id,
			   p.name AS name,
			   p.image AS image,
			   p.price AS price,
			   p.category AS category,
			   p.stock AS stock,
			   p.active AS active,
			   p.created_at AS created_at`

// FindProductByID returns the product or (nil, nil) when absent
func (s *Neo4jStore) FindProductByID(ctx context.Context, id string) (*models.Product, error) {
	query := `
		MATCH (p:Product {id: $id})
		RETURN ` + productReturn

	results, err := s.client.ExecuteRead(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to find product %s: %w", id, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	product := productFromRecord(results[0])
	return &product, nil
}

// FindProductsByIDs resolves products for the given ids, omitting unknown
// ids and, when activeOnly is set, inactive products
func (s *Neo4jStore) FindProductsByIDs(ctx context.Context, ids []string, activeOnly bool) ([]models.Product, error) {
	query := `
		MATCH (p:Product)
		WHERE p.id IN $ids AND (NOT $activeOnly OR p.active)
		RETURN ` + productReturn

	params := map[string]any{
		"ids":        toAnySlice(ids),
		"activeOnly": activeOnly,
	}

	results, err := s.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by ids: %w", err)
	}

	return productsFromRecords(results), nil
}

// FindProductsByCategory returns active products in the category, newest
// first, excluding the given ids
func (s *Neo4jStore) FindProductsByCategory(ctx context.Context, category string, excludeIDs []string, limit int) ([]models.Product, error) {
	query := `
		MATCH (p:Product {category: $category})
		WHERE p.active AND NOT p.id IN $excludeIds
		RETURN ` + productReturn + `
		ORDER BY p.created_at DESC, p.id ASC
		LIMIT $limit`

	params := map[string]any{
		"category":   category,
		"excludeIds": toAnySlice(excludeIDs),
		"limit":      limit,
	}

	results, err := s.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to find products in category %s: %w", category, err)
	}

	return productsFromRecords(results), nil
}

// FindRecentActiveProducts returns the most recently created active
// products, excluding the given ids
func (s *Neo4jStore) FindRecentActiveProducts(ctx context.Context, excludeIDs []string, limit int) ([]models.Product, error) {
	query := `
		MATCH (p:Product)
		WHERE p.active AND NOT p.id IN $excludeIds
		RETURN ` + productReturn + `
		ORDER BY p.created_at DESC, p.id ASC
		LIMIT $limit`

	params := map[string]any{
		"excludeIds": toAnySlice(excludeIDs),
		"limit":      limit,
	}

	results, err := s.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent active products: %w", err)
	}

	return productsFromRecords(results), nil
}

// FindOrderIDsContainingProduct returns every order containing the product
func (s *Neo4jStore) FindOrderIDsContainingProduct(ctx context.Context, productID string) ([]string, error) {
	query := `
		MATCH (o:Order)-[:CONTAINS]->(:Product {id: $productId})
		RETURN DISTINCT o.id AS order_id`

	results, err := s.client.ExecuteRead(ctx, query, map[string]any{"productId": productID})
	if err != nil {
		return nil, fmt.Errorf("failed to find orders containing product %s: %w", productID, err)
	}

	return idsFromRecords(results, "order_id"), nil
}

// CountCoOccurringProducts counts co-occurring products within the given
// orders. Only counts strictly greater than minCount are returned.
func (s *Neo4jStore) CountCoOccurringProducts(ctx context.Context, orderIDs []string, excludeProductID string, minCount, limit int) ([]models.ProductCount, error) {
	query := `
		MATCH (o:Order)-[:CONTAINS]->(p:Product)
		WHERE o.id IN $orderIds AND p.id <> $excludeProductId
		WITH p.id AS product_id, count(DISTINCT o) AS cnt
		WHERE cnt > $minCount
		RETURN product_id, cnt
		ORDER BY cnt DESC, product_id ASC
		LIMIT $limit`

	params := map[string]any{
		"orderIds":         toAnySlice(orderIDs),
		"excludeProductId": excludeProductID,
		"minCount":         minCount,
		"limit":            limit,
	}

	results, err := s.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to count co-occurring products: %w", err)
	}

	return countsFromRecords(results), nil
}

// CountProductOccurrencesGlobally counts per-product order occurrences
// across the whole order history
func (s *Neo4jStore) CountProductOccurrencesGlobally(ctx context.Context, limit int) ([]models.ProductCount, error) {
	query := `
		MATCH (o:Order)-[:CONTAINS]->(p:Product)
		WITH p.id AS product_id, count(DISTINCT o) AS cnt
		RETURN product_id, cnt
		ORDER BY cnt DESC, product_id ASC
		LIMIT $limit`

	results, err := s.client.ExecuteRead(ctx, query, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to count product occurrences: %w", err)
	}

	return countsFromRecords(results), nil
}

// FindOrderIDsForUser returns every order the user has placed
func (s *Neo4jStore) FindOrderIDsForUser(ctx context.Context, userID string) ([]string, error) {
	query := `
		MATCH (:User {id: $userId})-[:PLACED]->(o:Order)
		RETURN o.id AS order_id`

	results, err := s.client.ExecuteRead(ctx, query, map[string]any{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find orders for user %s: %w", userID, err)
	}

	return idsFromRecords(results, "order_id"), nil
}

// FindProductIDsInOrders returns the distinct product ids in the orders
func (s *Neo4jStore) FindProductIDsInOrders(ctx context.Context, orderIDs []string) ([]string, error) {
	query := `
		MATCH (o:Order)-[:CONTAINS]->(p:Product)
		WHERE o.id IN $orderIds
		RETURN DISTINCT p.id AS product_id`

	results, err := s.client.ExecuteRead(ctx, query, map[string]any{"orderIds": toAnySlice(orderIDs)})
	if err != nil {
		return nil, fmt.Errorf("failed to find products in orders: %w", err)
	}

	return idsFromRecords(results, "product_id"), nil
}

// FindRecommendationStats returns the stats row for the key or (nil, nil)
func (s *Neo4jStore) FindRecommendationStats(ctx context.Context, productID, recommendedProductID string, recType models.RecommendationType) (*models.RecommendationStats, error) {
	query := `
		MATCH (s:RecommendationStats {
			product_id: $productId,
			recommended_product_id: $recommendedProductId,
			recommendation_type: $recType
		})
		RETURN s.product_id AS product_id,
			   s.recommended_product_id AS recommended_product_id,
			   s.recommendation_type AS recommendation_type,
			   s.view_count AS view_count,
			   s.click_count AS click_count,
			   s.conversion_count AS conversion_count,
			   s.last_updated_at AS last_updated_at`

	params := map[string]any{
		"productId":            productID,
		"recommendedProductId": recommendedProductID,
		"recType":              string(recType),
	}

	results, err := s.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to find recommendation stats: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	record := results[0]
	stats := models.RecommendationStats{
		ProductID:            record["product_id"].(string),
		RecommendedProductID: record["recommended_product_id"].(string),
		RecommendationType:   models.RecommendationType(record["recommendation_type"].(string)),
		ViewCount:            int(record["view_count"].(int64)),
		ClickCount:           int(record["click_count"].(int64)),
		ConversionCount:      int(record["conversion_count"].(int64)),
	}
	if t, ok := record["last_updated_at"].(time.Time); ok {
		stats.LastUpdatedAt = t
	}
	return &stats, nil
}

// UpsertRecommendationStats increments the counter matching eventType for
// the key, creating the row when absent. The MERGE runs as one write query,
// so the increment-or-create is atomic per key.
func (s *Neo4jStore) UpsertRecommendationStats(ctx context.Context, productID, recommendedProductID string, recType models.RecommendationType, eventType models.EventType) error {
	view, click, conversion := 0, 0, 0
	switch eventType {
	case models.EventTypeView:
		view = 1
	case models.EventTypeClick:
		click = 1
	case models.EventTypeConversion:
		conversion = 1
	default:
		return fmt.Errorf("unknown event type %q", eventType)
	}

	query := `
		MERGE (s:RecommendationStats {
			product_id: $productId,
			recommended_product_id: $recommendedProductId,
			recommendation_type: $recType
		})
		ON CREATE SET s.view_count = $view,
					  s.click_count = $click,
					  s.conversion_count = $conversion,
					  s.last_updated_at = datetime()
		ON MATCH SET s.view_count = s.view_count + $view,
					 s.click_count = s.click_count + $click,
					 s.conversion_count = s.conversion_count + $conversion,
					 s.last_updated_at = datetime()`

	params := map[string]any{
		"productId":            productID,
		"recommendedProductId": recommendedProductID,
		"recType":              string(recType),
		"view":                 view,
		"click":                click,
		"conversion":           conversion,
	}

	if err := s.client.ExecuteWrite(ctx, query, params); err != nil {
		return fmt.Errorf("failed to upsert recommendation stats: %w", err)
	}
	return nil
}

// InsertRecommendationEvent appends one event node. Metadata is stored as a
// JSON string property since Neo4j properties cannot hold nested maps.
func (s *Neo4jStore) InsertRecommendationEvent(ctx context.Context, event *models.RecommendationEvent) error {
	metadata := ""
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode event metadata: %w", err)
		}
		metadata = string(raw)
	}

	var userID any
	if event.UserID != nil {
		userID = *event.UserID
	}

	query := `
		CREATE (e:RecommendationEvent {
			id: $id,
			user_id: $userId,
			product_id: $productId,
			recommended_product_id: $recommendedProductId,
			event_type: $eventType,
			recommendation_type: $recType,
			metadata: $metadata,
			created_at: $createdAt
		})`

	params := map[string]any{
		"id":                   event.ID,
		"userId":               userID,
		"productId":            event.ProductID,
		"recommendedProductId": event.RecommendedProductID,
		"eventType":            string(event.EventType),
		"recType":              string(event.RecommendationType),
		"metadata":             metadata,
		"createdAt":            event.CreatedAt,
	}

	if err := s.client.ExecuteWrite(ctx, query, params); err != nil {
		return fmt.Errorf("failed to insert recommendation event: %w", err)
	}
	return nil
}

func productFromRecord(record map[string]any) models.Product {
	product := models.Product{
		ID:   record["id"].(string),
		Name: record["name"].(string),
	}
	if image, ok := record["image"].(string); ok && image != "" {
		product.Image = &image
	}
	switch price := record["price"].(type) {
	case float64:
		product.Price = price
	case int64:
		product.Price = float64(price)
	}
	if category, ok := record["category"].(string); ok && category != "" {
		product.Category = &category
	}
	if stock, ok := record["stock"].(int64); ok {
		product.Stock = int(stock)
	}
	if active, ok := record["active"].(bool); ok {
		product.Active = active
	}
	if createdAt, ok := record["created_at"].(time.Time); ok {
		product.CreatedAt = createdAt
	}
	return product
}

func productsFromRecords(records []map[string]any) []models.Product {
	products := make([]models.Product, 0, len(records))
	for _, record := range records {
		products = append(products, productFromRecord(record))
	}
	return products
}

func countsFromRecords(records []map[string]any) []models.ProductCount {
	counts := make([]models.ProductCount, 0, len(records))
	for _, record := range records {
		counts = append(counts, models.ProductCount{
			ProductID: record["product_id"].(string),
			Count:     int(record["cnt"].(int64)),
		})
	}
	return counts
}

func idsFromRecords(records []map[string]any, key string) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record[key].(string))
	}
	return ids
}

func toAnySlice(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
