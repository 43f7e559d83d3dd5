// Package narration turns script text into speech clips.
package narration

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/threadshorts/internal/config"
)

var (
	ErrEmptyText    = errors.New("nothing to narrate")
	ErrMissingKey   = errors.New("api key not configured")
	ErrSynthesis    = errors.New("speech synthesis failed")
	ErrUnknownVoice = errors.New("unknown voice")
)

// Request is one clip to synthesize
type Request struct {
	Text   string
	Voice  string // empty uses the provider default
	Output string // mp3 path
}

// Narrator synthesizes speech with a text to speech provider
type Narrator interface {
	Name() string
	Voices() []string
	DefaultVoice() string
	Synthesize(ctx context.Context, req Request) error
}

// RandomSource yields uniform values in [0, 1)
type RandomSource interface {
	Float64() float64
}

// New creates the narrator for the configured provider
func New(logger zerolog.Logger, cfg config.NarrationConfig) (Narrator, error) {
	switch cfg.Provider {
	case "openai", "":
		n, err := NewOpenAI(logger, OpenAIOptions{
			APIKey: cfg.OpenAIKey,
			Model:  cfg.Model,
			Voice:  cfg.Voice,
			Voices: cfg.Voices,
			Speed:  cfg.Speed,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	case "elevenlabs":
		n, err := NewElevenLabs(logger, ElevenLabsOptions{
			APIKey:          cfg.ElevenLabs.APIKey,
			BaseURL:         cfg.ElevenLabs.BaseURL,
			ModelID:         cfg.ElevenLabs.ModelID,
			Voices:          cfg.ElevenLabs.Voices,
			Stability:       cfg.ElevenLabs.Stability,
			SimilarityBoost: cfg.ElevenLabs.SimilarityBoost,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown narration provider %q", cfg.Provider)
	}
}

// PickVoice draws a voice uniformly from the narrator's voices
func PickVoice(n Narrator, rng RandomSource) string {
	voices := n.Voices()
	if len(voices) == 0 {
		return n.DefaultVoice()
	}
	i := int(rng.Float64() * float64(len(voices)))
	if i >= len(voices) {
		i = len(voices) - 1
	}
	return voices[i]
}

// SynthesizeAll runs the requests with at most limit in flight. The first error
// cancels the rest.
func SynthesizeAll(ctx context.Context, n Narrator, reqs []Request, limit int) error {
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, req := range reqs {
		g.Go(func() error {
			if err := n.Synthesize(gctx, req); err != nil {
				return fmt.Errorf("%s: %w", req.Output, err)
			}
			return nil
		})
	}
	return g.Wait()
}
