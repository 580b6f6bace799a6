package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// driverOpener adapts the Neo4j driver to the SessionOpener seam.
type driverOpener struct {
	driver   neo4j.DriverWithContext
	database string
}

func (o *driverOpener) OpenSession(ctx context.Context) CypherSession {
	sess := o.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: o.database})
	return &neoSession{sess: sess}
}

type neoSession struct {
	sess neo4j.SessionWithContext
}

func (s *neoSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	result, err := s.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *neoSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&txRunner{tx: tx})
	})
}

func (s *neoSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r *txRunner) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	result, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}
