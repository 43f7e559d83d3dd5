package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Short is a rendered video
type Short struct {
	ThreadID string
	Title    string
	Link     string
	Output   string
	Segments int
	Elapsed  time.Duration
}

// Failure records a thread that could not be turned into a published short
type Failure struct {
	Link  string
	Stage string
	Err   error
}

// BatchReport summarizes a Run
type BatchReport struct {
	Candidates int
	Skipped    int // already processed
	Selected   int
	Made       []Short
	Uploaded   []UploadedShort
	Failed     []Failure
}

// UploadedShort is a short together with where it was published
type UploadedShort struct {
	Short
	Backend  string
	Location string
}

// Project is an explicit render description: segments in presentation order plus
// backgrounds. Relative paths resolve against the project file's directory.
type Project struct {
	Title      string           `yaml:"title"`
	Background string           `yaml:"background"`
	Music      string           `yaml:"music,omitempty"`
	Output     string           `yaml:"output"`
	Segments   []ProjectSegment `yaml:"segments"`
}

type ProjectSegment struct {
	Visual string `yaml:"visual"`
	Audio  string `yaml:"audio"`
}

// LoadProject reads a project file
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}

	base := filepath.Dir(path)
	resolve := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(base, s)
	}
	p.Background = resolve(p.Background)
	p.Music = resolve(p.Music)
	p.Output = resolve(p.Output)
	for i := range p.Segments {
		p.Segments[i].Visual = resolve(p.Segments[i].Visual)
		p.Segments[i].Audio = resolve(p.Segments[i].Audio)
	}
	return &p, nil
}
