package backgrounds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/kikiluvv/threadshorts/internal/config"
	"github.com/kikiluvv/threadshorts/pkg/util"
)

var (
	ErrNoBackgrounds = errors.New("no background videos registered")
	ErrNoMusic       = errors.New("no background music registered")
	ErrUnknownPreset = errors.New("unknown background")
)

// Random selects any registered background
const Random = "random"

// Presets for common backgrounds
const (
	MinecraftParkour = "minecraft_parkour"
	CSGOSurfing      = "csgo_surfing"
	SubwaySurfers    = "subway_surfers"
)

// Presets lists the well-known background names
func Presets() []string {
	return []string{MinecraftParkour, CSGOSurfing, SubwaySurfers}
}

var (
	videoExts = []string{".mp4", ".mov", ".mkv", ".webm"}
	musicExts = []string{".mp3", ".m4a", ".aac", ".wav", ".ogg", ".flac"}
)

// RandomSource yields uniform values in [0, 1)
type RandomSource interface {
	Float64() float64
}

// Registry manages available background videos and music tracks
type Registry struct {
	videos map[string]string
	music  []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		videos: make(map[string]string),
	}
}

// Load builds a registry from the configured directories and explicit entries.
// Explicit entries override files found on disk.
func Load(cfg config.BackgroundsConfig) (*Registry, error) {
	r := NewRegistry()

	videos, err := scan(cfg.VideoDir, videoExts)
	if err != nil {
		return nil, fmt.Errorf("scan background videos: %w", err)
	}
	for _, path := range videos {
		r.Register(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), path)
	}
	for name, path := range cfg.Videos {
		r.Register(name, path)
	}

	music, err := scan(cfg.MusicDir, musicExts)
	if err != nil {
		return nil, fmt.Errorf("scan background music: %w", err)
	}
	r.AddMusic(music...)
	r.AddMusic(cfg.Music...)

	return r, nil
}

// scan lists media files in dir. A missing directory is not an error.
func scan(dir string, exts []string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return filepath.Join(dir, e.Name()), !e.IsDir() && slices.Contains(exts, util.ExtLower(e.Name()))
	})
	slices.Sort(files)
	return files, nil
}

// Register adds a background video to the registry
func (r *Registry) Register(name, path string) {
	r.videos[name] = path
}

// Get retrieves a background path by name
func (r *Registry) Get(name string) (string, bool) {
	path, ok := r.videos[name]
	return path, ok
}

// List returns all registered backgrounds, sorted
func (r *Registry) List() []string {
	names := lo.Keys(r.videos)
	slices.Sort(names)
	return names
}

// AddMusic registers music tracks, ignoring duplicates
func (r *Registry) AddMusic(paths ...string) {
	r.music = lo.Uniq(append(r.music, paths...))
}

// Music returns all registered music tracks
func (r *Registry) Music() []string {
	return r.music
}

// Pick returns the background with the given name, or a random one for "" and "random"
func (r *Registry) Pick(name string, rng RandomSource) (string, string, error) {
	if name != "" && name != Random {
		path, ok := r.Get(name)
		if !ok {
			return "", "", fmt.Errorf("%w: %s", ErrUnknownPreset, name)
		}
		return name, path, nil
	}
	names := r.List()
	if len(names) == 0 {
		return "", "", ErrNoBackgrounds
	}
	chosen := names[index(rng, len(names))]
	return chosen, r.videos[chosen], nil
}

// PickMusic returns a random music track
func (r *Registry) PickMusic(rng RandomSource) (string, error) {
	if len(r.music) == 0 {
		return "", ErrNoMusic
	}
	return r.music[index(rng, len(r.music))], nil
}

func index(rng RandomSource, n int) int {
	return min(int(rng.Float64()*float64(n)), n-1)
}
