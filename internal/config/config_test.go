package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Render.Width != 576 || cfg.Render.Height != 1024 || cfg.Render.FPS != 30 {
		t.Errorf("unexpected render defaults %+v", cfg.Render)
	}
	if cfg.Render.MusicVolume != 0.3 {
		t.Errorf("music volume %v, want 0.3", cfg.Render.MusicVolume)
	}
}

func TestLoadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "threadshorts.yaml")
	data := `
output_dir: /tmp/shorts
source:
  subreddit: tifu
  comments: 3
narration:
  provider: elevenlabs
  voices: [a, b]
backgrounds:
  videos:
    minecraft_parkour: bg/minecraft.mp4
tracker:
  backend: redis
upload:
  backend: command
  command: ["uploader", "--video", "{video}", "--title", "{title}"]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "/tmp/shorts" || cfg.Source.Subreddit != "tifu" || cfg.Source.Comments != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Source.CharacterThreshold != 150 {
		t.Errorf("defaults lost for unset keys: %d", cfg.Source.CharacterThreshold)
	}
	if cfg.Backgrounds.Videos["minecraft_parkour"] != "bg/minecraft.mp4" {
		t.Errorf("videos %v", cfg.Backgrounds.Videos)
	}
	if len(cfg.Upload.Command) != 5 {
		t.Errorf("command %v", cfg.Upload.Command)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Subreddit != "AskReddit" {
		t.Errorf("expected defaults, got %+v", cfg.Source)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REDDIT_CLIENT_SECRET", "")
	if err := os.WriteFile(".env", []byte("REDDIT_CLIENT_SECRET=from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// restored by t.Setenv; godotenv only fills variables that are unset
	os.Unsetenv("REDDIT_CLIENT_SECRET")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.ClientSecret != "from-dotenv" {
		t.Errorf("secret %q, want from-dotenv", cfg.Source.ClientSecret)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"OPENAI_KEY":         "legacy",
		"ELEVENLABS_API_KEY": "el",
		"DATABASE_URL":       "postgres://x",
		"TTS_PROVIDER":       "elevenlabs",
	}
	cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Narration.OpenAIKey != "legacy" {
		t.Errorf("expected legacy OPENAI_KEY fallback, got %q", cfg.Narration.OpenAIKey)
	}
	if cfg.Narration.ElevenLabs.APIKey != "el" || cfg.Tracker.DatabaseURL != "postgres://x" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Narration.Provider != "elevenlabs" {
		t.Errorf("provider %q", cfg.Narration.Provider)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Render.FPS = 0
	cfg.Tracker.Backend = "sqlite"
	cfg.Upload.Backend = "command"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"fps", "sqlite", "needs a command"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestSaveOmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Narration.OpenAIKey = "sk-secret"
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "sk-secret") {
		t.Error("secrets must not be written to disk")
	}
}

func TestContext(t *testing.T) {
	cfg := Default()
	cfg.OutputDir = "custom"
	ctx := WithConfig(context.Background(), cfg)
	if FromContext(ctx).OutputDir != "custom" {
		t.Error("config not stored in context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected defaults without a stored config")
	}
}
