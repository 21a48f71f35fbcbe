package graph

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"

	"github.com/diogoqz/api-consulta-hotmart/pkg/grouping"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

const projectionBatchSize = 500

// Customers are keyed like search groups so the graph agrees with grouped results
const projectCypher = `
	UNWIND $rows AS row
	MERGE (c:Customer {key: row.customer_key})
	SET c.key_kind = row.key_kind, c.name = row.name, c.email = row.email, c.phone = row.phone
	MERGE (p:Platform {name: row.platform})
	MERGE (s:Sale {platform: row.platform, key: row.sale_key})
	SET s.product = row.product, s.status = row.status, s.value = row.value, s.active = row.active, s.signup_date = row.signup_date
	MERGE (c)-[:PURCHASED]->(s)
	MERGE (s)-[:SOLD_ON]->(p)
`

const crossPlatformCypher = `
	MATCH (c:Customer)-[:PURCHASED]->(:Sale)-[:SOLD_ON]->(p:Platform)
	WITH c, count(DISTINCT p) AS platforms
	WHERE platforms > 1
	RETURN count(c) AS customers
`

// Projector writes imported records into the graph
type Projector interface {
	Project(ctx context.Context, records []models.CustomerRecord) error
}

// CustomerProjection maintains (:Customer)-[:PURCHASED]->(:Sale)-[:SOLD_ON]->(:Platform)
type CustomerProjection struct {
	client  *Client
	builder *matching.ViewBuilder
	logger  ectologger.Logger
}

// NewCustomerProjection creates a CustomerProjection
func NewCustomerProjection(client *Client, builder *matching.ViewBuilder, logger ectologger.Logger) *CustomerProjection {
	return &CustomerProjection{client: client, builder: builder, logger: logger}
}

// Project merges records into the graph in batches
func (p *CustomerProjection) Project(ctx context.Context, records []models.CustomerRecord) error {
	ctx, span := tracing.StartSpan(ctx, "graph.CustomerProjection.Project")
	defer span.End()

	rows := ProjectionRows(records, p.builder)
	for start := 0; start < len(rows); start += projectionBatchSize {
		end := min(start+projectionBatchSize, len(rows))
		batch := rows[start:end]

		_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, projectCypher, map[string]any{"rows": batch})
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			return errors.Wrap(err, "failed to project customers")
		}
	}

	p.logger.WithContext(ctx).WithField("rows", len(rows)).Debug("Projected customers into graph")
	return nil
}

// CrossPlatformCustomers counts customers with sales on more than one platform
func (p *CustomerProjection) CrossPlatformCustomers(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.CustomerProjection.CrossPlatformCustomers")
	defer span.End()

	out, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, crossPlatformCypher, nil)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		count, _, err := neo4j.GetRecordValue[int64](record, "customers")
		return count, err
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to count cross platform customers")
	}
	return out.(int64), nil
}

// ProjectionRows builds the UNWIND parameters of records
func ProjectionRows(records []models.CustomerRecord, builder *matching.ViewBuilder) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		view := builder.Build(r)
		key, kind := grouping.ClientKey(models.ScoredCandidate{Record: r, View: view})

		signup := ""
		if r.SignupDate != nil {
			signup = r.SignupDate.UTC().Format(time.RFC3339)
		}

		rows = append(rows, map[string]any{
			"customer_key": key,
			"key_kind":     string(kind),
			"name":         r.Name,
			"email":        view.EmailLower,
			"phone":        view.FullPhone,
			"platform":     string(r.Platform),
			"sale_key":     r.Key(),
			"product":      r.Product,
			"status":       r.Status,
			"value":        r.Value,
			"active":       view.IsActive,
			"signup_date":  signup,
		})
	}
	return rows
}

// NoopProjector skips projection. It is used when the graph is disabled.
type NoopProjector struct{}

func (NoopProjector) Project(context.Context, []models.CustomerRecord) error {
	return nil
}
