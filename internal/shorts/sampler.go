package shorts

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// RandomSource yields uniform values in [0, 1)
type RandomSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRandom draws from the process-wide math/rand/v2 generator
func DefaultRandom() RandomSource { return globalRand{} }

// NewSeededRandom returns a reproducible source for dry runs
func NewSeededRandom(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Subrange is a contiguous window [Start, End) of a longer asset
type Subrange struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns End - Start
func (s Subrange) Duration() time.Duration { return s.End - s.Start }

// SampleSubrange picks a random window of length required inside an asset of length asset.
// An asset shorter than required is an error rather than an out-of-range window.
func SampleSubrange(rng RandomSource, asset, required time.Duration) (Subrange, error) {
	if required <= 0 {
		return Subrange{}, ErrEmptyTimeline
	}
	if asset < required {
		return Subrange{}, fmt.Errorf("%w: have %v, need %v", ErrAssetTooShort, asset, required)
	}
	if rng == nil {
		rng = DefaultRandom()
	}

	maxStart := asset - required
	start := time.Duration(rng.Float64() * float64(maxStart))
	if start > maxStart {
		start = maxStart
	}
	if start < 0 {
		start = 0
	}

	return Subrange{Start: start, End: start + required}, nil
}
