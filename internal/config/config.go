package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	OutputDir   string `yaml:"output_dir"`
	KeepWorkDir bool   `yaml:"keep_work_dir"`
	Concurrency int    `yaml:"concurrency"`
	LogFormat   string `yaml:"log_format"`

	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Render      RenderConfig      `yaml:"render"`
	Source      SourceConfig      `yaml:"source"`
	Selection   SelectionConfig   `yaml:"selection"`
	Narration   NarrationConfig   `yaml:"narration"`
	Images      ImageConfig       `yaml:"images"`
	Backgrounds BackgroundsConfig `yaml:"backgrounds"`
	Tracker     TrackerConfig     `yaml:"tracker"`
	Upload      UploadConfig      `yaml:"upload"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type RenderConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	FPS         int     `yaml:"fps"`
	MusicVolume float64 `yaml:"music_volume"`
}

type SourceConfig struct {
	Subreddit          string `yaml:"subreddit"`
	SearchLimit        int    `yaml:"search_limit"`
	TimeFilter         string `yaml:"time_filter"`
	Comments           int    `yaml:"comments"`
	CharacterThreshold int    `yaml:"character_threshold"`
	AllowNSFW          bool   `yaml:"allow_nsfw"`
	UserAgent          string `yaml:"user_agent"`
	ClientID           string `yaml:"client_id" env:"REDDIT_CLIENT_ID"`
	ClientSecret       string `yaml:"-" env:"REDDIT_CLIENT_SECRET"`
}

type SelectionConfig struct {
	Count           int     `yaml:"count"`
	UseLLM          bool    `yaml:"use_llm"`
	Model           string  `yaml:"model"`
	HeuristicWeight float64 `yaml:"heuristic_weight"`
}

type NarrationConfig struct {
	Provider   string           `yaml:"provider" env:"TTS_PROVIDER"`
	Voice      string           `yaml:"voice"`
	Voices     []string         `yaml:"voices"`
	Model      string           `yaml:"model"`
	Speed      float64          `yaml:"speed"`
	Normalize  bool             `yaml:"normalize"`
	OpenAIKey  string           `yaml:"-" env:"OPENAI_API_KEY"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

type ElevenLabsConfig struct {
	BaseURL         string   `yaml:"base_url"`
	ModelID         string   `yaml:"model_id"`
	Voices          []string `yaml:"voices"` // voice IDs, empty uses the premade set
	Stability       float64  `yaml:"stability"`
	SimilarityBoost float64  `yaml:"similarity_boost"`
	APIKey          string   `yaml:"-" env:"ELEVENLABS_API_KEY"`
}

type ImageConfig struct {
	FontPath       string  `yaml:"font_path"`
	FontSize       float64 `yaml:"font_size"`
	DarkMode       bool    `yaml:"dark_mode"`
	AnimatedHeader string  `yaml:"animated_header"`
}

type BackgroundsConfig struct {
	Default  string            `yaml:"default"`
	VideoDir string            `yaml:"video_dir"`
	MusicDir string            `yaml:"music_dir"`
	Videos   map[string]string `yaml:"videos"`
	Music    []string          `yaml:"music"`
}

type TrackerConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	RedisKey    string `yaml:"redis_key"`
	DatabaseURL string `yaml:"-" env:"DATABASE_URL"`
}

type UploadConfig struct {
	Backend string        `yaml:"backend"`
	Command []string      `yaml:"command"`
	S3      S3Config      `yaml:"s3"`
	YouTube YouTubeConfig `yaml:"youtube"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"` // S3-compatible stores; uses path-style addressing
}

type YouTubeConfig struct {
	CredentialsFile string   `yaml:"credentials_file"`
	TokenFile       string   `yaml:"token_file"`
	Privacy         string   `yaml:"privacy"`
	CategoryID      string   `yaml:"category_id"`
	Tags            []string `yaml:"tags"`
}

// Load reads configuration from file or returns defaults. A .env file in the
// working directory is loaded first; environment variables override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges and backend names
func (c *Config) Validate() error {
	var errs []error

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render: frame %dx%d must be positive", c.Render.Width, c.Render.Height))
	}
	if c.Render.FPS <= 0 {
		errs = append(errs, fmt.Errorf("render: fps must be positive"))
	}
	if c.Render.MusicVolume < 0 {
		errs = append(errs, fmt.Errorf("render: music_volume cannot be negative"))
	}
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		errs = append(errs, fmt.Errorf("ffmpeg: crf must be between 0 and 51"))
	}
	if c.Source.CharacterThreshold <= 0 {
		errs = append(errs, fmt.Errorf("source: character_threshold must be positive"))
	}
	if c.Selection.HeuristicWeight < 0 || c.Selection.HeuristicWeight > 1 {
		errs = append(errs, fmt.Errorf("selection: heuristic_weight must be between 0 and 1"))
	}
	if c.Narration.Speed < 0.25 || c.Narration.Speed > 4 {
		errs = append(errs, fmt.Errorf("narration: speed must be between 0.25 and 4"))
	}
	if !oneOf(c.Narration.Provider, "openai", "elevenlabs") {
		errs = append(errs, fmt.Errorf("narration: unknown provider %q", c.Narration.Provider))
	}
	if !oneOf(c.Tracker.Backend, "file", "redis", "postgres") {
		errs = append(errs, fmt.Errorf("tracker: unknown backend %q", c.Tracker.Backend))
	}
	if !oneOf(c.Upload.Backend, "none", "command", "youtube", "s3") {
		errs = append(errs, fmt.Errorf("upload: unknown backend %q", c.Upload.Backend))
	}
	if c.Upload.Backend == "command" && len(c.Upload.Command) == 0 {
		errs = append(errs, fmt.Errorf("upload: command backend needs a command"))
	}
	if c.Upload.Backend == "s3" && c.Upload.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("upload: s3 backend needs a bucket"))
	}
	if c.Upload.Backend == "youtube" && c.Upload.YouTube.CredentialsFile == "" {
		errs = append(errs, fmt.Errorf("upload: youtube backend needs a credentials file"))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Source.ClientID, "REDDIT_CLIENT_ID")
	set(&c.Source.ClientSecret, "REDDIT_CLIENT_SECRET")
	set(&c.Narration.Provider, "TTS_PROVIDER")
	set(&c.Narration.OpenAIKey, "OPENAI_API_KEY")
	// legacy name used by older .env files
	if c.Narration.OpenAIKey == "" {
		set(&c.Narration.OpenAIKey, "OPENAI_KEY")
	}
	set(&c.Narration.ElevenLabs.APIKey, "ELEVENLABS_API_KEY")
	set(&c.Tracker.RedisURL, "REDIS_URL")
	set(&c.Tracker.DatabaseURL, "DATABASE_URL")
	set(&c.WorkDir, "TMP_FOLDER")
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:     "./work",
		OutputDir:   "./output",
		Concurrency: 4,
		LogFormat:   "console",
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Render: RenderConfig{
			Width:       576,
			Height:      1024,
			FPS:         30,
			MusicVolume: 0.3,
		},
		Source: SourceConfig{
			Subreddit:          "AskReddit",
			SearchLimit:        50,
			TimeFilter:         "day",
			Comments:           5,
			CharacterThreshold: 150,
			UserAgent:          "threadshorts/1.0",
		},
		Selection: SelectionConfig{
			Count:           10,
			UseLLM:          false,
			Model:           "gpt-4o",
			HeuristicWeight: 0.5,
		},
		Narration: NarrationConfig{
			Provider:  "openai",
			Voice:     "onyx",
			Voices:    []string{"onyx", "echo", "fable", "nova", "shimmer", "alloy"},
			Model:     "tts-1",
			Speed:     1.0,
			Normalize: true,
			ElevenLabs: ElevenLabsConfig{
				BaseURL:         "https://api.elevenlabs.io/v1",
				ModelID:         "eleven_multilingual_v2",
				Stability:       0.5,
				SimilarityBoost: 0.75,
			},
		},
		Images: ImageConfig{
			FontSize: 30,
			DarkMode: true,
		},
		Backgrounds: BackgroundsConfig{
			Default:  "random",
			VideoDir: "assets/backgrounds",
			MusicDir: "assets/music",
			Videos:   make(map[string]string),
		},
		Tracker: TrackerConfig{
			Backend:  "file",
			Path:     "processed_links.yaml",
			RedisKey: "threadshorts:processed",
		},
		Upload: UploadConfig{
			Backend: "none",
			YouTube: YouTubeConfig{
				TokenFile:  "youtube_token.json",
				Privacy:    "private",
				CategoryID: "24",
			},
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./threadshorts.yaml",
		"./threadshorts.yml",
		filepath.Join(os.Getenv("HOME"), ".threadshorts", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
