package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
)

// CypherResult abstracts a Neo4j result cursor.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// CypherRunner runs a Cypher statement inside a session or transaction.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is the subset of a Neo4j session the store uses.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener opens sessions. The production opener wraps the Neo4j
// driver; tests substitute an in-memory one.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

// GraphStore provides graph operations for the travel catalog.
type GraphStore struct {
	driver neo4j.DriverWithContext
	opener SessionOpener
}

// New creates a GraphStore backed by a Neo4j driver.
func New(uri, username, password, database string) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: create driver: %w", err)
	}
	return &GraphStore{
		driver: driver,
		opener: &driverOpener{driver: driver, database: database},
	}, nil
}

// NewWithOpener creates a GraphStore with a custom session opener.
func NewWithOpener(opener SessionOpener) *GraphStore {
	return &GraphStore{opener: opener}
}

// Close releases the underlying driver.
func (g *GraphStore) Close(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

// VerifyConnectivity checks that the database is reachable.
func (g *GraphStore) VerifyConnectivity(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return connectivityErr(g.driver.VerifyConnectivity(ctx))
}

// connectivityErr classifies a reachability failure as transient so callers
// retry it like any other connection fault.
func connectivityErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("graph: %w", domain.Transient(err))
}

// Neighbors returns the one-hop neighborhood of a node, traversing every
// relationship type in both directions. A missing node yields an empty
// context, not an error.
func (g *GraphStore) Neighbors(ctx context.Context, nodeID string) (GraphContext, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n {id: $id})
		OPTIONAL MATCH (n)-[r]-(m)
		RETURN n, collect({rel_type: type(r), node: m}) AS related`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": nodeID})
	if err != nil {
		return GraphContext{}, fmt.Errorf("graph: neighbors %s: %w", nodeID, err)
	}
	if !result.Next(ctx) {
		return GraphContext{}, nil
	}

	rec := result.Record()
	gc := GraphContext{}
	if raw, ok := rec.Get("n"); ok {
		if node, ok := raw.(dbtype.Node); ok {
			gc.Node = node.Props
		}
	}
	raw, ok := rec.Get("related")
	if !ok {
		return gc, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return gc, nil
	}
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		node, ok := m["node"].(dbtype.Node)
		if !ok {
			continue
		}
		n := Neighbor{
			Name: strProp(node.Props, "name"),
			Type: strProp(node.Props, "type"),
		}
		if n.Name == "" {
			continue
		}
		if rel, ok := m["rel_type"].(string); ok {
			n.Relation = rel
		}
		gc.Related = append(gc.Related, n)
	}
	return gc, nil
}

// EnsureConstraints creates uniqueness constraints for every node label.
func (g *GraphStore) EnsureConstraints(ctx context.Context) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT IF NOT EXISTS FOR (c:City) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (a:Attraction) REQUIRE a.id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (h:Hotel) REQUIRE h.id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (ac:Activity) REQUIRE ac.id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (o:Other) REQUIRE o.id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (r:Region) REQUIRE r.name IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE`,
	}
	for _, stmt := range stmts {
		if _, err := sess.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graph: create constraint: %w", err)
		}
	}
	return nil
}

// SaveItem creates or updates a catalog item node under its typed label.
func (g *GraphStore) SaveItem(ctx context.Context, item domain.CatalogItem) error {
	if err := domain.ValidateItem(item); err != nil {
		return err
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	label := string(item.Type)
	cypher := fmt.Sprintf(`MERGE (n:%s {id: $id}) SET n += $props`, label)
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":    item.ID,
		"props": itemToProps(item),
	})
	if err != nil {
		return fmt.Errorf("graph: save item %s: %w", item.ID, err)
	}
	return nil
}

// SaveItems stores a batch of catalog items in a single transaction.
func (g *GraphStore) SaveItems(ctx context.Context, items []domain.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, item := range items {
			if err := domain.ValidateItem(item); err != nil {
				return nil, err
			}
			cypher := fmt.Sprintf(`MERGE (n:%s {id: $id}) SET n += $props`, string(item.Type))
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"id":    item.ID,
				"props": itemToProps(item),
			}); err != nil {
				return nil, fmt.Errorf("save item %s: %w", item.ID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graph: save items: %w", err)
	}
	return nil
}

// SaveConnections creates LOCATED_IN, HAS_TAG and dataset connection
// relationships for a batch of items. Endpoints that do not exist are
// skipped by the MATCH, not errors.
func (g *GraphStore) SaveConnections(ctx context.Context, items []domain.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, item := range items {
			if item.City != "" {
				cypher := `MATCH (a {id: $src})
					OPTIONAL MATCH (c:City)
					WHERE toLower(c.name) = toLower($city)
					FOREACH (_ IN CASE WHEN c IS NULL THEN [] ELSE [1] END |
						MERGE (a)-[:LOCATED_IN]->(c))`
				if _, err := tx.Run(ctx, cypher, map[string]any{
					"src": item.ID, "city": item.City,
				}); err != nil {
					return nil, fmt.Errorf("located_in %s: %w", item.ID, err)
				}
			}
			for _, tag := range item.Tags {
				cypher := `MATCH (a {id: $src})
					MERGE (t:Tag {name: $tag})
					MERGE (a)-[:HAS_TAG]->(t)`
				if _, err := tx.Run(ctx, cypher, map[string]any{
					"src": item.ID, "tag": tag,
				}); err != nil {
					return nil, fmt.Errorf("has_tag %s: %w", item.ID, err)
				}
			}
			for _, conn := range item.Connections {
				if conn.Target == "" {
					continue
				}
				cypher := fmt.Sprintf(`MATCH (a {id: $src}), (b {id: $tgt})
					MERGE (a)-[:%s]->(b)`, sanitizeRelType(conn.Relation))
				if _, err := tx.Run(ctx, cypher, map[string]any{
					"src": item.ID, "tgt": conn.Target,
				}); err != nil {
					return nil, fmt.Errorf("connection %s->%s: %w", item.ID, conn.Target, err)
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graph: save connections: %w", err)
	}
	return nil
}

// LinkRegions creates Region nodes from city region fields and links each
// city to its region.
func (g *GraphStore) LinkRegions(ctx context.Context) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (c:City)
		WHERE c.region IS NOT NULL AND c.region <> ''
		MERGE (r:Region {name: c.region})
		MERGE (c)-[:IN_REGION]->(r)`
	if _, err := sess.Run(ctx, cypher, nil); err != nil {
		return fmt.Errorf("graph: link regions: %w", err)
	}
	return nil
}

// BuildDerivedRelationships creates SAME_CITY and SIMILAR_TAGS edges from
// node properties and makes CONNECTED_TO symmetric between cities.
func (g *GraphStore) BuildDerivedRelationships(ctx context.Context) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	stmts := []string{
		`MATCH (a) WHERE a.city IS NOT NULL
		 WITH a
		 MATCH (b) WHERE b.city IS NOT NULL AND a.city = b.city AND a.id < b.id
		 MERGE (a)-[:SAME_CITY]->(b)`,
		`MATCH (a) WHERE size(a.tags) > 0
		 WITH a
		 MATCH (b) WHERE size(b.tags) > 0 AND a.id < b.id
		 WITH a, b, [tag IN a.tags WHERE tag IN b.tags] AS common
		 WHERE size(common) > 0
		 MERGE (a)-[:SIMILAR_TAGS {tags: common}]->(b)`,
		`MATCH (c1:City)-[:CONNECTED_TO]->(c2:City)
		 MERGE (c2)-[:CONNECTED_TO]->(c1)`,
	}
	for _, stmt := range stmts {
		if _, err := sess.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graph: derived relationships: %w", err)
		}
	}
	return nil
}

// Stats returns node counts per label plus the total relationship count.
func (g *GraphStore) Stats(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	counts := make(map[string]int64)

	result, err := sess.Run(ctx, `MATCH (n) RETURN labels(n)[0] AS label, count(*) AS count`, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: stats: %w", err)
	}
	for result.Next(ctx) {
		rec := result.Record()
		label, _ := rec.Get("label")
		cnt, _ := rec.Get("count")
		if l, ok := label.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[l] = c
			}
		}
	}

	result, err = sess.Run(ctx, `MATCH ()-[r]->() RETURN count(r) AS rels`, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: stats: %w", err)
	}
	if result.Next(ctx) {
		if rels, ok := result.Record().Get("rels"); ok {
			if r, ok := rels.(int64); ok {
				counts["relationships"] = r
			}
		}
	}
	return counts, nil
}

// Clear removes every node and relationship. Used by the loader before a
// full rebuild.
func (g *GraphStore) Clear(ctx context.Context) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	if _, err := sess.Run(ctx, `MATCH (n) DETACH DELETE n`, nil); err != nil {
		return fmt.Errorf("graph: clear: %w", err)
	}
	return nil
}

// itemToProps flattens a catalog item into node properties. Long text is
// truncated to keep node payloads small; full text lives in the vector
// index payload.
func itemToProps(item domain.CatalogItem) map[string]any {
	props := map[string]any{
		"id":   item.ID,
		"name": item.Name,
		"type": string(item.Type),
	}
	if item.Description != "" {
		props["description"] = clampProp(item.Description, 800)
	}
	if item.SemanticText != "" {
		props["semantic_text"] = clampProp(item.SemanticText, 800)
	}
	if item.Region != "" {
		props["region"] = item.Region
	}
	if item.City != "" {
		props["city"] = item.City
	}
	if item.BestTime != "" {
		props["best_time_to_visit"] = item.BestTime
	}
	if len(item.Tags) > 0 {
		props["tags"] = item.Tags
	}
	return props
}

// clampProp caps s at max characters, never splitting a multibyte rune.
func clampProp(s string, max int) string {
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// sanitizeRelType ensures the relationship type is a valid Cypher identifier.
func sanitizeRelType(t string) string {
	t = strings.ReplaceAll(strings.TrimSpace(t), " ", "_")
	safe := make([]byte, 0, len(t))
	for i := range t {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	for i := range safe {
		if safe[i] >= 'a' && safe[i] <= 'z' {
			safe[i] -= 32
		}
	}
	return string(safe)
}
