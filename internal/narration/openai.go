package narration

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/pkg/util"
)

// OpenAIVoices are the built-in voices of the speech endpoint
var OpenAIVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Voices  []string
	Speed   float64
}

// OpenAI narrates with the OpenAI speech endpoint
type OpenAI struct {
	logger zerolog.Logger
	client openai.Client
	opts   OpenAIOptions
}

func NewOpenAI(logger zerolog.Logger, opts OpenAIOptions) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai narration: %w", ErrMissingKey)
	}
	if opts.Model == "" {
		opts.Model = "tts-1"
	}
	if opts.Voice == "" {
		opts.Voice = "onyx"
	}
	if len(opts.Voices) == 0 {
		opts.Voices = OpenAIVoices
	}
	if opts.Speed == 0 {
		opts.Speed = 1
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAI{
		logger: logger.With().Str("component", "narration").Str("provider", "openai").Logger(),
		client: openai.NewClient(clientOpts...),
		opts:   opts,
	}, nil
}

func (o *OpenAI) Name() string         { return "openai" }
func (o *OpenAI) Voices() []string     { return o.opts.Voices }
func (o *OpenAI) DefaultVoice() string { return o.opts.Voice }

func (o *OpenAI) Synthesize(ctx context.Context, req Request) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ErrEmptyText
	}
	voice := req.Voice
	if voice == "" {
		voice = o.opts.Voice
	}
	if voice != o.opts.Voice && !slices.Contains(o.opts.Voices, voice) {
		return fmt.Errorf("%w: %s", ErrUnknownVoice, voice)
	}

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.opts.Model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(o.opts.Speed),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if err := writeAudio(req.Output, resp.Body); err != nil {
		return err
	}

	o.logger.Debug().
		Str("voice", voice).
		Int("chars", len(text)).
		Str("output", req.Output).
		Msg("synthesized narration")
	return nil
}

func writeAudio(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: read audio: %v", ErrSynthesis, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty audio response", ErrSynthesis)
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
