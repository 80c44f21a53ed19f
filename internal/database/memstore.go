package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storefront-labs/recommendation-engine/internal/models"
)

// MemoryStore is an in-memory Store used when no Neo4j instance is
// configured (dev mode) and by the test suites. All methods are safe for
// concurrent use; the stats upsert holds the write lock for the whole
// read-modify-write so concurrent trackers never lose updates.
type MemoryStore struct {
	mu         sync.RWMutex
	products   map[string]models.Product
	orders     []models.Order
	orderItems map[string][]string // order id -> product ids, insertion order
	events     []models.RecommendationEvent
	stats      map[statsKey]*models.RecommendationStats
}

type statsKey struct {
	productID            string
	recommendedProductID string
	recommendationType   models.RecommendationType
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[string]models.Product),
		orderItems: make(map[string][]string),
		stats:      make(map[statsKey]*models.RecommendationStats),
	}
}

// AddProduct inserts or replaces a catalog product
func (s *MemoryStore) AddProduct(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
}

// AddOrder inserts an order together with its line items. A product id
// listed more than once still counts as a single occurrence for the
// co-occurrence queries.
func (s *MemoryStore) AddOrder(order models.Order, productIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order)
	s.orderItems[order.ID] = append(s.orderItems[order.ID], productIDs...)
}

// Events returns a copy of the append-only event log
func (s *MemoryStore) Events() []models.RecommendationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]models.RecommendationEvent, len(s.events))
	copy(events, s.events)
	return events
}

// StatsCount returns the number of stats rows held
func (s *MemoryStore) StatsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stats)
}

// FindProductByID returns the product or (nil, nil) when absent
func (s *MemoryStore) FindProductByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &product, nil
}

// FindProductsByIDs resolves products, omitting unknown ids and, when
// activeOnly is set, inactive products
func (s *MemoryStore) FindProductsByIDs(_ context.Context, ids []string, activeOnly bool) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		product, ok := s.products[id]
		if !ok {
			continue
		}
		if activeOnly && !product.Active {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// FindProductsByCategory returns active products in the category, newest
// first
func (s *MemoryStore) FindProductsByCategory(_ context.Context, category string, excludeIDs []string, limit int) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := toSet(excludeIDs)
	var products []models.Product
	for _, product := range s.products {
		if !product.Active || excluded[product.ID] {
			continue
		}
		if product.Category == nil || *product.Category != category {
			continue
		}
		products = append(products, product)
	}
	sortNewestFirst(products)
	return truncateProducts(products, limit), nil
}

// FindRecentActiveProducts returns the most recently created active
// products
func (s *MemoryStore) FindRecentActiveProducts(_ context.Context, excludeIDs []string, limit int) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := toSet(excludeIDs)
	var products []models.Product
	for _, product := range s.products {
		if !product.Active || excluded[product.ID] {
			continue
		}
		products = append(products, product)
	}
	sortNewestFirst(products)
	return truncateProducts(products, limit), nil
}

// FindOrderIDsContainingProduct returns every order containing the product
func (s *MemoryStore) FindOrderIDsContainingProduct(_ context.Context, productID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orderIDs := make([]string, 0)
	for _, order := range s.orders {
		if containsID(s.orderItems[order.ID], productID) {
			orderIDs = append(orderIDs, order.ID)
		}
	}
	return orderIDs, nil
}

// CountCoOccurringProducts counts co-occurring products within the given
// orders. Only counts strictly greater than minCount are returned.
func (s *MemoryStore) CountCoOccurringProducts(_ context.Context, orderIDs []string, excludeProductID string, minCount, limit int) ([]models.ProductCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, orderID := range orderIDs {
		for _, productID := range uniqueIDs(s.orderItems[orderID]) {
			if productID == excludeProductID {
				continue
			}
			counts[productID]++
		}
	}

	ranked := make([]models.ProductCount, 0, len(counts))
	for productID, count := range counts {
		if count > minCount {
			ranked = append(ranked, models.ProductCount{ProductID: productID, Count: count})
		}
	}
	sortCountsDescending(ranked)
	return truncateCounts(ranked, limit), nil
}

// CountProductOccurrencesGlobally counts per-product order occurrences
// across the whole order history
func (s *MemoryStore) CountProductOccurrencesGlobally(_ context.Context, limit int) ([]models.ProductCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, order := range s.orders {
		for _, productID := range uniqueIDs(s.orderItems[order.ID]) {
			counts[productID]++
		}
	}

	ranked := make([]models.ProductCount, 0, len(counts))
	for productID, count := range counts {
		ranked = append(ranked, models.ProductCount{ProductID: productID, Count: count})
	}
	sortCountsDescending(ranked)
	return truncateCounts(ranked, limit), nil
}

// FindOrderIDsForUser returns every order the user has placed
func (s *MemoryStore) FindOrderIDsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orderIDs := make([]string, 0)
	for _, order := range s.orders {
		if order.UserID == userID {
			orderIDs = append(orderIDs, order.ID)
		}
	}
	return orderIDs, nil
}

// FindProductIDsInOrders returns the distinct product ids in the orders
func (s *MemoryStore) FindProductIDsInOrders(_ context.Context, orderIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	productIDs := make([]string, 0)
	for _, orderID := range orderIDs {
		for _, productID := range s.orderItems[orderID] {
			if seen[productID] {
				continue
			}
			seen[productID] = true
			productIDs = append(productIDs, productID)
		}
	}
	return productIDs, nil
}

// FindRecommendationStats returns the stats row for the key or (nil, nil)
func (s *MemoryStore) FindRecommendationStats(_ context.Context, productID, recommendedProductID string, recType models.RecommendationType) (*models.RecommendationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[statsKey{productID, recommendedProductID, recType}]
	if !ok {
		return nil, nil
	}
	statsCopy := *stats
	return &statsCopy, nil
}

// UpsertRecommendationStats increments the counter matching eventType,
// creating the row when absent
func (s *MemoryStore) UpsertRecommendationStats(_ context.Context, productID, recommendedProductID string, recType models.RecommendationType, eventType models.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statsKey{productID, recommendedProductID, recType}
	stats, ok := s.stats[key]
	if !ok {
		stats = &models.RecommendationStats{
			ProductID:            productID,
			RecommendedProductID: recommendedProductID,
			RecommendationType:   recType,
		}
		s.stats[key] = stats
	}

	switch eventType {
	case models.EventTypeView:
		stats.ViewCount++
	case models.EventTypeClick:
		stats.ClickCount++
	case models.EventTypeConversion:
		stats.ConversionCount++
	}
	stats.LastUpdatedAt = time.Now().UTC()
	return nil
}

// InsertRecommendationEvent appends one event row
func (s *MemoryStore) InsertRecommendationEvent(_ context.Context, event *models.RecommendationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

func sortNewestFirst(products []models.Product) {
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID < products[j].ID
	})
}

func sortCountsDescending(counts []models.ProductCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ProductID < counts[j].ProductID
	})
}

func truncateProducts(products []models.Product, limit int) []models.Product {
	if limit >= 0 && len(products) > limit {
		products = products[:limit]
	}
	return products
}

func truncateCounts(counts []models.ProductCount, limit int) []models.ProductCount {
	if limit >= 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
