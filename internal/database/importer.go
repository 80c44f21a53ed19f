package database

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CSVImporter bootstraps the catalog and order history from CSV files
// served under a base URL. Intended for development and demo environments;
// a production deployment feeds the graph from the storefront's order
// pipeline instead.
type CSVImporter struct {
	client *Neo4jClient
	log    *zap.SugaredLogger
}

// NewCSVImporter creates a new CSV importer
func NewCSVImporter(client *Neo4jClient, log *zap.SugaredLogger) *CSVImporter {
	return &CSVImporter{client: client, log: log}
}

// ImportAllData imports all CSV files in dependency order. When clearFirst
// is set, all existing data is removed before the import.
func (i *CSVImporter) ImportAllData(ctx context.Context, baseURL string, clearFirst bool) error {
	if clearFirst {
		if err := i.clearDatabase(ctx); err != nil {
			return fmt.Errorf("failed to clear database: %w", err)
		}
	}

	steps := []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{"products", i.ImportProducts},
		{"users", i.ImportUsers},
		{"orders", i.ImportOrders},
		{"order_items", i.ImportOrderItems},
	}

	for _, step := range steps {
		i.log.Infow("importing", "step", step.name)
		if err := step.fn(ctx, baseURL); err != nil {
			return fmt.Errorf("failed to import %s: %w", step.name, err)
		}
	}

	i.log.Infow("csv import completed")
	return nil
}

// ImportProducts imports catalog products from CSV
func (i *CSVImporter) ImportProducts(ctx context.Context, baseURL string) error {
	query := `
		LOAD CSV WITH HEADERS FROM $csvURL AS row
		WITH row WHERE row.product_id IS NOT NULL
		MERGE (p:Product {id: row.product_id})
		SET p.name = row.name,
			p.image = row.image,
			p.price = toFloat(row.price),
			p.category = row.category,
			p.stock = toInteger(coalesce(row.stock, '0')),
			p.active = toBoolean(coalesce(row.active, 'true')),
			p.created_at = datetime(row.created_at)`

	return i.runImport(ctx, query, csvURL(baseURL, "products.csv"))
}

// ImportUsers imports customers from CSV
func (i *CSVImporter) ImportUsers(ctx context.Context, baseURL string) error {
	query := `
		LOAD CSV WITH HEADERS FROM $csvURL AS row
		WITH row WHERE row.user_id IS NOT NULL
		MERGE (u:User {id: row.user_id})
		SET u.name = row.name,
			u.email = row.email,
			u.created_at = datetime(row.created_at)`

	return i.runImport(ctx, query, csvURL(baseURL, "users.csv"))
}

// ImportOrders imports orders from CSV and links them to their users
func (i *CSVImporter) ImportOrders(ctx context.Context, baseURL string) error {
	query := `
		LOAD CSV WITH HEADERS FROM $csvURL AS row
		WITH row WHERE row.order_id IS NOT NULL
		MERGE (o:Order {id: row.order_id})
		SET o.created_at = datetime(row.created_at)
		WITH o, row
		MATCH (u:User {id: row.user_id})
		MERGE (u)-[:PLACED]->(o)`

	return i.runImport(ctx, query, csvURL(baseURL, "orders.csv"))
}

// ImportOrderItems imports order line items from CSV
func (i *CSVImporter) ImportOrderItems(ctx context.Context, baseURL string) error {
	query := `
		LOAD CSV WITH HEADERS FROM $csvURL AS row
		WITH row WHERE row.order_id IS NOT NULL AND row.product_id IS NOT NULL
		MATCH (o:Order {id: row.order_id})
		MATCH (p:Product {id: row.product_id})
		MERGE (o)-[c:CONTAINS]->(p)
		SET c.quantity = toInteger(coalesce(row.quantity, '1'))`

	return i.runImport(ctx, query, csvURL(baseURL, "order_items.csv"))
}

// GetImportStatus returns node counts for the imported graph
func (i *CSVImporter) GetImportStatus(ctx context.Context) (map[string]int, error) {
	query := `
		MATCH (p:Product) WITH count(p) as products
		MATCH (u:User) WITH products, count(u) as users
		MATCH (o:Order) WITH products, users, count(o) as orders
		MATCH ()-[c:CONTAINS]->() WITH products, users, orders, count(c) as order_items
		RETURN products, users, orders, order_items`

	results, err := i.client.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get import status: %w", err)
	}

	status := map[string]int{
		"products":    0,
		"users":       0,
		"orders":      0,
		"order_items": 0,
	}
	if len(results) == 0 {
		return status, nil
	}

	record := results[0]
	for key := range status {
		if count, ok := record[key].(int64); ok {
			status[key] = int(count)
		}
	}
	return status, nil
}

func (i *CSVImporter) runImport(ctx context.Context, query, url string) error {
	return i.client.ExecuteWrite(ctx, query, map[string]any{"csvURL": url})
}

// clearDatabase removes all existing data (development only)
func (i *CSVImporter) clearDatabase(ctx context.Context) error {
	i.log.Warnw("clearing existing database")
	return i.client.ExecuteWrite(ctx, `MATCH (n) DETACH DELETE n`, nil)
}

func csvURL(baseURL, file string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), file)
}
