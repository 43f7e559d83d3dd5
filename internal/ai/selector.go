package ai

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/internal/source"
)

// Ranked is a thread with its selection score
type Ranked struct {
	Thread source.Thread
	Score  float64
}

// Selector picks the most promising threads. When the primary scorer fails the
// fallback scorer ranks the batch instead.
type Selector struct {
	logger   zerolog.Logger
	scorer   Scorer
	fallback Scorer
	topN     int
}

// NewSelector creates a selector returning at most topN threads
func NewSelector(logger zerolog.Logger, scorer Scorer, topN int) *Selector {
	return &Selector{
		logger:   logger.With().Str("component", "selector").Logger(),
		scorer:   scorer,
		fallback: NewHeuristicScorer(),
		topN:     topN,
	}
}

// Select scores threads and returns the top N, best first
func (s *Selector) Select(ctx context.Context, threads []source.Thread) ([]Ranked, error) {
	if len(threads) == 0 {
		return nil, nil
	}

	scores, err := s.scorer.Score(ctx, threads)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("scoring failed, falling back to heuristics")
		scores, err = s.fallback.Score(ctx, threads)
		if err != nil {
			return nil, err
		}
	}

	ranked := make([]Ranked, len(threads))
	for i, t := range threads {
		ranked[i] = Ranked{Thread: t, Score: scores[i]}
	}
	top := s.rankAndFilter(ranked)

	s.logger.Info().
		Int("candidates", len(threads)).
		Int("selected", len(top)).
		Msg("thread selection complete")
	return top, nil
}

// Close releases scorer resources
func (s *Selector) Close() error {
	return s.scorer.Close()
}

// rankAndFilter sorts by score and returns top N. Ties keep input order.
func (s *Selector) rankAndFilter(ranked []Ranked) []Ranked {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if s.topN > 0 && len(ranked) > s.topN {
		return ranked[:s.topN]
	}
	return ranked
}
