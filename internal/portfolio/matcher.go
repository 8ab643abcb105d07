package portfolio

import (
	"context"
	"fmt"

	"github.com/amishk599/coldmail/internal/model"
)

// Ensure Matcher implements model.LinkMatcher.
var _ model.LinkMatcher = (*Matcher)(nil)

// Matcher finds portfolio links for a job's skills with one nearest-neighbour query.
type Matcher struct {
	index *Index
}

// NewMatcher returns a Matcher over index.
func NewMatcher(index *Index) *Matcher {
	return &Matcher{index: index}
}

// Match returns the link of each of the k nearest entries, in rank order.
// Results are used as the store returns them: no threshold, no dedup.
func (m *Matcher) Match(ctx context.Context, skills string, k int) ([]string, error) {
	coll, err := m.index.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}

	results, err := coll.Query(ctx, skills, k)
	if err != nil {
		return nil, fmt.Errorf("query portfolio: %w", err)
	}

	links := make([]string, 0, len(results))
	for _, r := range results {
		if link, ok := r.Metadata[LinkKey]; ok {
			links = append(links, link)
		}
	}
	return links, nil
}
