package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

var tableNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// PgVectorIndex stores vectors in a Postgres table with the pgvector extension.
// The table is named after the index and created if absent. Save and Load are no-ops.
type PgVectorIndex struct {
	db         *sql.DB
	table      string
	dimensions int
	metric     Metric
}

// NewPgVectorIndex connects to dsn and ensures the index table exists.
func NewPgVectorIndex(dsn, name string, dimensions int, metric Metric) (*PgVectorIndex, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	idx, err := NewPgVectorIndexFromDB(db, name, dimensions, metric)
	if err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// NewPgVectorIndexFromDB reuses an open database handle.
func NewPgVectorIndexFromDB(db *sql.DB, name string, dimensions int, metric Metric) (*PgVectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m, err := ParseMetric(string(metric))
	if err != nil {
		return nil, err
	}
	idx := &PgVectorIndex{db: db, table: tableName(name), dimensions: dimensions, metric: m}
	if err := idx.ensureTable(context.Background()); err != nil {
		return nil, fmt.Errorf("create vector table: %w", err)
	}
	return idx, nil
}

func tableName(name string) string {
	n := tableNameRe.ReplaceAllString(strings.ToLower(name), "_")
	if n == "" {
		n = "vectors"
	}
	return "tansaku_" + n
}

func (p *PgVectorIndex) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS %s (
  id         text PRIMARY KEY,
  position   bigserial,
  embedding  vector(%d) NOT NULL,
  metadata   jsonb,
  updated_at timestamptz NOT NULL DEFAULT now()
);
`, pq.QuoteIdentifier(p.table), p.dimensions)
	_, err := p.db.ExecContext(ctx, ddl)
	return err
}

// Upsert writes all rows in one transaction.
func (p *PgVectorIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]string) error {
	if err := checkUpsert(ids, vectors, metadata, p.dimensions); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
INSERT INTO %s (id, embedding, metadata, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
  embedding=EXCLUDED.embedding,
  metadata=EXCLUDED.metadata,
  updated_at=EXCLUDED.updated_at;
`, pq.QuoteIdentifier(p.table))
	now := time.Now().UTC()
	for i, id := range ids {
		meta, err := json.Marshal(metadataAt(metadata, i))
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, id, toVectorLiteral(vectors[i]), meta, now); err != nil {
			return fmt.Errorf("upsert %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// scoreExpr returns the similarity projection and the ascending distance ordering
// for the metric. $1 is the query vector.
func (p *PgVectorIndex) scoreExpr() (score, order string) {
	switch p.metric {
	case MetricDotProduct:
		return "-(embedding <#> $1)", "embedding <#> $1"
	case MetricEuclidean:
		return "1 / (1 + (embedding <-> $1))", "embedding <-> $1"
	default:
		return "1 - (embedding <=> $1)", "embedding <=> $1"
	}
}

// Query returns the k nearest rows ordered by the metric's distance operator.
func (p *PgVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if len(vector) != p.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), p.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	score, order := p.scoreExpr()
	query := fmt.Sprintf(`SELECT id, %s AS score, metadata FROM %s ORDER BY %s, position LIMIT %d`,
		score, pq.QuoteIdentifier(p.table), order, k)
	rows, err := p.db.QueryContext(ctx, query, toVectorLiteral(vector))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Match
	for rows.Next() {
		var m Match
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Score, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
			}
		}
		results = append(results, &m)
	}
	return results, rows.Err()
}

// Reset empties the table.
func (p *PgVectorIndex) Reset(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY", pq.QuoteIdentifier(p.table)))
	return err
}

// Save is a no-op; rows are durable once upserted.
func (p *PgVectorIndex) Save(string) error { return nil }

// Load is a no-op; the table is the index.
func (p *PgVectorIndex) Load(string) error { return nil }

// Size returns the row count, or 0 when the database is unreachable.
func (p *PgVectorIndex) Size() int {
	var n int
	if err := p.db.QueryRow(fmt.Sprintf("SELECT count(*) FROM %s", pq.QuoteIdentifier(p.table))).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Type returns the index type identifier.
func (p *PgVectorIndex) Type() string {
	return string(IndexTypePgVector)
}

// Close closes the database handle.
func (p *PgVectorIndex) Close() error {
	return p.db.Close()
}

func toVectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
