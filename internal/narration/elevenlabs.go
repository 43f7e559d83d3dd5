package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ElevenLabsVoices are premade voice IDs available to every account
var ElevenLabsVoices = []string{
	"21m00Tcm4TlvDq8ikWAM", // Rachel
	"AZnzlk1XvdvUeBnXmlld", // Domi
	"EXAVITQu4vr4xnSDxOaL", // Bella
	"ErXwobaYiN019PkySvjV", // Antoni
	"TxGEqnHWrfWFTfGW9XjX", // Josh
	"VR6AewLTigWg4xSOukaG", // Arnold
	"pNInz6obpgDQGcFmaJgB", // Adam
	"yoZ06aMxZJJ28mfd3POQ", // Sam
}

type ElevenLabsOptions struct {
	APIKey          string
	BaseURL         string
	ModelID         string
	Voices          []string
	Stability       float64
	SimilarityBoost float64
	HTTPClient      *http.Client
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabs narrates with the ElevenLabs text to speech API
type ElevenLabs struct {
	logger zerolog.Logger
	http   *http.Client
	opts   ElevenLabsOptions
}

func NewElevenLabs(logger zerolog.Logger, opts ElevenLabsOptions) (*ElevenLabs, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs narration: %w", ErrMissingKey)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.elevenlabs.io/v1"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.ModelID == "" {
		opts.ModelID = "eleven_multilingual_v2"
	}
	if len(opts.Voices) == 0 {
		opts.Voices = ElevenLabsVoices
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	return &ElevenLabs{
		logger: logger.With().Str("component", "narration").Str("provider", "elevenlabs").Logger(),
		http:   client,
		opts:   opts,
	}, nil
}

func (e *ElevenLabs) Name() string         { return "elevenlabs" }
func (e *ElevenLabs) Voices() []string     { return e.opts.Voices }
func (e *ElevenLabs) DefaultVoice() string { return e.opts.Voices[0] }

func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ErrEmptyText
	}
	voice := req.Voice
	if voice == "" {
		voice = e.DefaultVoice()
	}

	payload, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.opts.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       e.opts.Stability,
			SimilarityBoost: e.opts.SimilarityBoost,
		},
	})
	if err != nil {
		return err
	}

	url := e.opts.BaseURL + "/text-to-speech/" + voice
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.opts.APIKey)

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.logger.Error().
			Int("status", resp.StatusCode).
			Str("voice", voice).
			Str("body", strings.TrimSpace(string(body))).
			Msg("text to speech request failed")
		return fmt.Errorf("%w: elevenlabs returned %s", ErrSynthesis, resp.Status)
	}

	if err := writeAudio(req.Output, resp.Body); err != nil {
		return err
	}

	e.logger.Debug().
		Str("voice", voice).
		Int("chars", len(text)).
		Str("output", req.Output).
		Msg("synthesized narration")
	return nil
}
