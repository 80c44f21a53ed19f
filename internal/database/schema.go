package database

import (
	"context"
	"fmt"
)

// EnsureSchema creates the uniqueness constraints and indexes the store
// queries rely on. All statements are idempotent.
func EnsureSchema(ctx context.Context, client *Neo4jClient) error {
	statements := []struct {
		name  string
		query string
	}{
		{"product_id_unique", `CREATE CONSTRAINT product_id_unique IF NOT EXISTS FOR (p:Product) REQUIRE p.id IS UNIQUE`},
		{"order_id_unique", `CREATE CONSTRAINT order_id_unique IF NOT EXISTS FOR (o:Order) REQUIRE o.id IS UNIQUE`},
		{"user_id_unique", `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`},
		{"event_id_unique", `CREATE CONSTRAINT event_id_unique IF NOT EXISTS FOR (e:RecommendationEvent) REQUIRE e.id IS UNIQUE`},
		{"product_category_index", `CREATE INDEX product_category_index IF NOT EXISTS FOR (p:Product) ON (p.category)`},
		{"stats_key_index", `CREATE INDEX stats_key_index IF NOT EXISTS FOR (s:RecommendationStats) ON (s.product_id, s.recommended_product_id, s.recommendation_type)`},
	}

	for _, statement := range statements {
		if err := client.ExecuteWrite(ctx, statement.query, nil); err != nil {
			return fmt.Errorf("failed to create %s: %w", statement.name, err)
		}
	}
	return nil
}
