package ai

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/kikiluvv/threadshorts/internal/source"
)

// Scorer rates threads for how engaging a short made from them would be.
// Scores are in [0, 1], one per thread, in input order.
type Scorer interface {
	Score(ctx context.Context, threads []source.Thread) ([]float64, error)
	Close() error
}

// HeuristicScorer uses engagement counters and title shape
type HeuristicScorer struct {
	weights Weights
}

// Weights for different heuristic factors
type Weights struct {
	Upvotes  float64
	Comments float64
	Title    float64
}

// NewHeuristicScorer creates a new heuristic scorer
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{
		weights: Weights{
			Upvotes:  0.5,
			Comments: 0.3,
			Title:    0.2,
		},
	}
}

// Score rates each thread relative to the others in the batch
func (h *HeuristicScorer) Score(_ context.Context, threads []source.Thread) ([]float64, error) {
	var maxUp, maxComments float64
	for _, t := range threads {
		maxUp = math.Max(maxUp, math.Log1p(float64(max(t.Score, 0))))
		maxComments = math.Max(maxComments, math.Log1p(float64(max(t.NumComments, 0))))
	}

	total := h.weights.Upvotes + h.weights.Comments + h.weights.Title
	scores := make([]float64, len(threads))
	for i, t := range threads {
		s := h.weights.Upvotes*ratio(math.Log1p(float64(max(t.Score, 0))), maxUp) +
			h.weights.Comments*ratio(math.Log1p(float64(max(t.NumComments, 0))), maxComments) +
			h.weights.Title*titleFit(t.Title)
		scores[i] = s / total
	}
	return scores, nil
}

// Close is a no-op for heuristic scorer
func (h *HeuristicScorer) Close() error {
	return nil
}

func ratio(v, maxV float64) float64 {
	if maxV == 0 {
		return 0
	}
	return v / maxV
}

// titleFit prefers titles that read well on a card: 20 to 120 characters
func titleFit(title string) float64 {
	n := utf8.RuneCountInString(title)
	switch {
	case n == 0:
		return 0
	case n < 20:
		return float64(n) / 20
	case n <= 120:
		return 1
	default:
		return math.Max(0, 1-float64(n-120)/180)
	}
}

// CompositeScorer combines multiple scorers
type CompositeScorer struct {
	scorers []Scorer
	weights []float64
}

// NewCompositeScorer creates a scorer that combines multiple scorers
func NewCompositeScorer(scorers []Scorer, weights []float64) *CompositeScorer {
	return &CompositeScorer{
		scorers: scorers,
		weights: weights,
	}
}

// Score calculates a weighted average of all scorers. Any failure fails the whole batch.
func (c *CompositeScorer) Score(ctx context.Context, threads []source.Thread) ([]float64, error) {
	if len(c.scorers) != len(c.weights) {
		return nil, fmt.Errorf("composite scorer has %d scorers but %d weights", len(c.scorers), len(c.weights))
	}

	out := make([]float64, len(threads))
	total := 0.0
	for i, s := range c.scorers {
		scores, err := s.Score(ctx, threads)
		if err != nil {
			return nil, err
		}
		if len(scores) != len(threads) {
			return nil, fmt.Errorf("scorer %d returned %d scores for %d threads", i, len(scores), len(threads))
		}
		for j, v := range scores {
			out[j] += c.weights[i] * v
		}
		total += c.weights[i]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out, nil
}

// Close closes all underlying scorers
func (c *CompositeScorer) Close() error {
	for _, scorer := range c.scorers {
		if err := scorer.Close(); err != nil {
			return err
		}
	}
	return nil
}
