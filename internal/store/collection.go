package store

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/coldmail/internal/embed"
)

// Document is one entry of a collection: the embedded text plus metadata.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// QueryResult is a Document with its cosine similarity to the query.
type QueryResult struct {
	Document
	Score float32
}

// Collection is a handle on one named collection. Safe for concurrent reads.
type Collection struct {
	name     string
	db       *sql.DB
	embedder embed.Embedder
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Count returns the number of entries in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings WHERE collection = ?", c.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", c.name, err)
	}
	return n, nil
}

// Add embeds each document's text and inserts all of them in one transaction.
func (c *Collection) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	vectors := make([][]float32, len(docs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, d := range docs {
		g.Go(func() error {
			vec, err := c.embedder.Embed(gCtx, d.Text)
			if err != nil {
				return fmt.Errorf("embedding document %s: %w", d.ID, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (id, collection, document, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		meta, err := encodeMetadata(d.Metadata)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding metadata for %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, c.name, d.Text, meta, encodeFloat32s(vectors[i])); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns the documents with the given ids. Unknown ids are skipped.
func (c *Collection) Get(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, c.name)
	for _, id := range ids {
		args = append(args, id)
	}

	query := `SELECT id, document, metadata FROM embeddings
		WHERE collection = ? AND id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying by ids: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var meta string
		if err := rows.Scan(&d.ID, &d.Text, &meta); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if d.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", d.ID, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// All returns every entry of the collection in insertion order.
func (c *Collection) All(ctx context.Context) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, document, metadata FROM embeddings WHERE collection = ? ORDER BY rowid", c.name)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.name, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var meta string
		if err := rows.Scan(&d.ID, &d.Text, &meta); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if d.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", d.ID, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Query embeds text and returns up to n entries ranked by cosine similarity,
// most similar first. A text that embeds to the zero vector matches nothing.
func (c *Collection) Query(ctx context.Context, text string, n int) ([]QueryResult, error) {
	if n <= 0 {
		return nil, nil
	}

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryNorm := norm(vec)
	if queryNorm == 0 {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT id, document, metadata, embedding FROM embeddings WHERE collection = ?", c.name)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	h := &resultHeap{}
	var buf []float32
	for rows.Next() {
		var d Document
		var meta string
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", d.ID, err)
		}

		score := cosine(vec, buf, queryNorm)
		if h.Len() == n && score <= (*h)[0].Score {
			continue
		}
		if d.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", d.ID, err)
		}
		if h.Len() < n {
			heap.Push(h, QueryResult{Document: d, Score: score})
		} else {
			(*h)[0] = QueryResult{Document: d, Score: score}
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	results := make([]QueryResult, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(QueryResult)
	}
	return results, nil
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]string, error) {
	m := map[string]string{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into buf, reusing it across rows.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). Vectors of different length score 0.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if bNormSq == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * math.Sqrt(bNormSq)))
}

// resultHeap is a min-heap of QueryResult ordered by Score.
type resultHeap []QueryResult

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)        { *h = append(*h, x.(QueryResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
