package services

import (
	"sort"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// queryHits are the raw index hits for one reformulated query.
type queryHits struct {
	query string
	hits  []driven.VectorHit
}

// candidate is a fused position before chunk resolution.
type candidate struct {
	position int
	score    float32
	query    string
}

// fuse merges hits from every reformulation by position, keeping the
// highest score and the query that produced it. Hits below threshold and
// sentinel positions are dropped. The result is ordered by score
// descending, ties broken by position ascending.
func fuse(results []queryHits, threshold float32) []candidate {
	best := make(map[int]candidate)
	for _, r := range results {
		for _, h := range r.hits {
			if h.Position < 0 || h.Score < threshold {
				continue
			}
			if c, ok := best[h.Position]; ok && c.score >= h.Score {
				continue
			}
			best[h.Position] = candidate{position: h.Position, score: h.Score, query: r.query}
		}
	}

	out := make([]candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].position < out[j].position
	})
	return out
}

// selectHits applies the result count policy to score-ordered hits.
// Static mode keeps the first topK. Dynamic mode keeps the first topK and
// then extends while each next score stays within DynamicKRatio of the
// last kept one, stopping at twice topK.
func selectHits(hits []domain.RetrievalHit, opts domain.RetrievalOptions) []domain.RetrievalHit {
	if opts.TopK <= 0 {
		return nil
	}
	if len(hits) <= opts.TopK {
		return hits
	}
	kept := hits[:opts.TopK]
	if !opts.DynamicK {
		return kept
	}

	limit := opts.MaxResults()
	prev := kept[len(kept)-1].Score
	for _, h := range hits[opts.TopK:] {
		if len(kept) >= limit || h.Score < domain.DynamicKRatio*prev {
			break
		}
		kept = hits[:len(kept)+1]
		prev = h.Score
	}
	return kept
}
