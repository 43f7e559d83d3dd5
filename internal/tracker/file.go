package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/threadshorts/pkg/util"
)

type fileEntry struct {
	Link        string    `yaml:"link"`
	ProcessedAt time.Time `yaml:"processed_at"`
}

type fileState struct {
	Processed []fileEntry `yaml:"processed"`
}

// File keeps processed links in a YAML file, rewritten atomically on every mark
type File struct {
	logger zerolog.Logger
	path   string

	mu    sync.Mutex
	state fileState
	index map[string]struct{}
}

func NewFile(logger zerolog.Logger, path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("tracker file path is required")
	}
	f := &File{
		logger: logger,
		path:   path,
		index:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read tracker file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.state); err != nil {
		return nil, fmt.Errorf("parse tracker file %s: %w", path, err)
	}
	for _, e := range f.state.Processed {
		f.index[e.Link] = struct{}{}
	}

	logger.Debug().Str("path", path).Int("links", len(f.index)).Msg("loaded processed links")
	return f, nil
}

func (f *File) HasProcessed(_ context.Context, link string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.index[link]
	return ok, nil
}

func (f *File) MarkProcessed(_ context.Context, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.index[link]; ok {
		return nil
	}
	next := f.state
	next.Processed = append(append([]fileEntry(nil), f.state.Processed...), fileEntry{
		Link:        link,
		ProcessedAt: time.Now().UTC(),
	})

	data, err := yaml.Marshal(&next)
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(f.path, data, 0644); err != nil {
		return fmt.Errorf("write tracker file: %w", err)
	}

	f.state = next
	f.index[link] = struct{}{}
	return nil
}

func (f *File) Close() error { return nil }
