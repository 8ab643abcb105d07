package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/amishk599/coldmail/internal/embed"
	"github.com/amishk599/coldmail/internal/store"
)

// LinkKey is the metadata key holding an entry's link.
const LinkKey = "links"

// Index lazily builds the portfolio collection and hands out the same
// handle for the rest of the process. Construct one and share it.
type Index struct {
	source     string
	columns    Columns
	store      *store.SQLiteStore
	collection string
	embedder   embed.Embedder
	logger     *slog.Logger

	mu     sync.Mutex
	handle *store.Collection
}

// NewIndex wires an Index. Nothing is read until the first Get.
func NewIndex(source string, cols Columns, vs *store.SQLiteStore, collection string, embedder embed.Embedder, logger *slog.Logger) *Index {
	return &Index{
		source:     source,
		columns:    cols,
		store:      vs,
		collection: collection,
		embedder:   embedder,
		logger:     logger,
	}
}

// Get returns the populated collection. The first successful call reads the
// source and fills an empty collection; later calls return the memoized
// handle. A failed attempt is not cached, so the next call tries again.
func (x *Index) Get(ctx context.Context) (*store.Collection, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.handle != nil {
		return x.handle, nil
	}

	entries, err := ReadEntries(x.source, x.columns)
	if err != nil {
		return nil, err
	}

	coll, err := x.store.GetOrCreateCollection(ctx, x.collection, x.embedder)
	if err != nil {
		return nil, err
	}

	n, err := coll.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		docs := make([]store.Document, len(entries))
		for i, e := range entries {
			docs[i] = store.Document{
				ID:       uuid.NewString(),
				Text:     e.TechStack,
				Metadata: map[string]string{LinkKey: e.Link},
			}
		}
		if err := coll.Add(ctx, docs); err != nil {
			return nil, fmt.Errorf("populating %s: %w", x.collection, err)
		}
		x.logger.Info("portfolio indexed", "collection", x.collection, "entries", len(docs), "source", x.source)
	} else {
		x.logger.Debug("portfolio already indexed", "collection", x.collection, "entries", n)
	}

	x.handle = coll
	return coll, nil
}
