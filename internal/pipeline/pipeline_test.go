package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/internal/ai"
	"github.com/kikiluvv/threadshorts/internal/backgrounds"
	"github.com/kikiluvv/threadshorts/internal/config"
	"github.com/kikiluvv/threadshorts/internal/content"
	"github.com/kikiluvv/threadshorts/internal/ffmpeg"
	"github.com/kikiluvv/threadshorts/internal/narration"
	"github.com/kikiluvv/threadshorts/internal/shorts"
	"github.com/kikiluvv/threadshorts/internal/source"
	"github.com/kikiluvv/threadshorts/internal/tracker"
	"github.com/kikiluvv/threadshorts/internal/upload"
)

type fakeSource struct {
	threads []source.Thread
}

func (f *fakeSource) TopThreads(_ context.Context, _ string, _ int, _ string, _ bool) ([]source.Thread, error) {
	out := make([]source.Thread, len(f.threads))
	for i, t := range f.threads {
		t.Comments = nil
		out[i] = t
	}
	return out, nil
}

func (f *fakeSource) Thread(_ context.Context, threadURL string) (*source.Thread, error) {
	for _, t := range f.threads {
		if t.Link() == threadURL {
			return &t, nil
		}
	}
	return nil, source.ErrThreadNotFound
}

func writeCard(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, image.NewRGBA(image.Rect(0, 0, 576, 96)))
}

type fakeRenderer struct {
	mu       sync.Mutex
	cards    []string
	animated []string
}

func (f *fakeRenderer) RenderCard(u *content.Unit, dir string) (string, error) {
	path := filepath.Join(dir, u.ID+".png")
	if err := writeCard(path); err != nil {
		return "", err
	}
	u.Visual = path
	f.mu.Lock()
	f.cards = append(f.cards, u.ID)
	f.mu.Unlock()
	return path, nil
}

func (f *fakeRenderer) AnimatedCard(_, _, output string) error {
	f.mu.Lock()
	f.animated = append(f.animated, output)
	f.mu.Unlock()
	// image.DecodeConfig sniffs the format, so a png body works for the planner
	return writeCard(output)
}

func (f *fakeRenderer) Close() error { return nil }

type fakeNarrator struct {
	mu     sync.Mutex
	voices map[string]string // output -> voice
	failOn string
}

func (f *fakeNarrator) Name() string         { return "fake" }
func (f *fakeNarrator) Voices() []string     { return []string{"v1", "v2", "v3"} }
func (f *fakeNarrator) DefaultVoice() string { return "narrator" }

func (f *fakeNarrator) Synthesize(_ context.Context, req narration.Request) error {
	if f.failOn != "" && strings.Contains(req.Text, f.failOn) {
		return narration.ErrSynthesis
	}
	f.mu.Lock()
	if f.voices == nil {
		f.voices = make(map[string]string)
	}
	f.voices[filepath.Base(req.Output)] = req.Voice
	f.mu.Unlock()
	return os.WriteFile(req.Output, []byte("mp3"), 0644)
}

// fakeToolkit gives every narration clip two seconds and knows the background
type fakeToolkit struct {
	background string
	encoded    []ffmpeg.EncodeOptions
}

func (f *fakeToolkit) ProbeDuration(_ context.Context, path string) (time.Duration, error) {
	if strings.HasSuffix(path, ".mp3") {
		return 2 * time.Second, nil
	}
	return 0, fmt.Errorf("unknown media %s", path)
}

func (f *fakeToolkit) Probe(_ context.Context, path string) (*ffmpeg.MediaInfo, error) {
	if path != f.background {
		return nil, fmt.Errorf("unknown media %s", path)
	}
	return &ffmpeg.MediaInfo{FilePath: path, Duration: time.Minute, Width: 1920, Height: 1080, HasVideo: true}, nil
}

func (f *fakeToolkit) Encode(_ context.Context, opts ffmpeg.EncodeOptions) error {
	f.encoded = append(f.encoded, opts)
	return os.WriteFile(opts.Output, []byte("video"), 0644)
}

type fakeUploader struct {
	uploaded []string
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, video, _ string) (upload.Result, error) {
	if f.err != nil {
		return upload.Result{}, f.err
	}
	f.uploaded = append(f.uploaded, video)
	return upload.Result{Backend: "fake", Location: "fake://" + filepath.Base(video)}, nil
}

var testThreads = []source.Thread{
	{
		ID: "a1", Title: "What is the best advice you ever got?", Author: "op1",
		Permalink: "/r/AskReddit/comments/a1/best_advice/", Score: 5000, NumComments: 800,
		Comments: []source.Comment{
			{ID: "c1", Author: "alice", Body: "Measure twice, cut once"},
			{ID: "c2", Author: "bob", Body: "Never skip leg day!"},
		},
	},
	{
		ID: "a2", Title: "What ruined a hobby for you?", Author: "op2",
		Permalink: "/r/AskReddit/comments/a2/ruined/", Score: 3000, NumComments: 300,
		Comments: []source.Comment{
			{ID: "c3", Author: "carol", Body: "boom goes the dynamite"},
		},
	},
	{
		ID: "a3", Title: "TIL something small", Author: "op3",
		Permalink: "/r/AskReddit/comments/a3/til/", Score: 100, NumComments: 10,
		Comments: []source.Comment{
			{ID: "c4", Author: "dave", Body: "Neat."},
		},
	},
}

type harness struct {
	cfg      *config.Config
	renderer *fakeRenderer
	narrator *fakeNarrator
	toolkit  *fakeToolkit
	tracker  tracker.Tracker
	uploader *fakeUploader
	pipeline *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.WorkDir = filepath.Join(dir, "work")
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Concurrency = 2

	bg := filepath.Join(dir, "minecraft.mp4")
	if err := os.WriteFile(bg, []byte("bg"), 0644); err != nil {
		t.Fatal(err)
	}
	reg := backgrounds.NewRegistry()
	reg.Register("minecraft", bg)

	track, err := tracker.NewFile(zerolog.Nop(), filepath.Join(dir, "processed.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		cfg:      cfg,
		renderer: &fakeRenderer{},
		narrator: &fakeNarrator{},
		toolkit:  &fakeToolkit{background: bg},
		tracker:  track,
		uploader: &fakeUploader{},
	}
	h.pipeline, err = New(zerolog.Nop(), cfg, Deps{
		Source:      &fakeSource{threads: testThreads},
		Selector:    ai.NewSelector(zerolog.Nop(), ai.NewHeuristicScorer(), cfg.Selection.Count),
		Images:      h.renderer,
		Narrator:    h.narrator,
		Backgrounds: reg,
		Toolkit:     h.toolkit,
		Tracker:     track,
		Uploader:    h.uploader,
		Random:      shorts.NewSeededRandom(7),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.pipeline.Close() })
	return h
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(zerolog.Nop(), config.Default(), Deps{}); err == nil {
		t.Error("expected error without collaborators")
	}
	if _, err := New(zerolog.Nop(), nil, Deps{}); err == nil {
		t.Error("expected error without config")
	}
}

func TestMakeShort(t *testing.T) {
	h := newHarness(t)

	short, err := h.pipeline.MakeShort(context.Background(), testThreads[0].Link())
	if err != nil {
		t.Fatalf("MakeShort: %v", err)
	}
	if short.Segments != 3 || short.ThreadID != "a1" {
		t.Errorf("unexpected short %+v", short)
	}
	if filepath.Dir(short.Output) != h.cfg.OutputDir || filepath.Ext(short.Output) != ".mp4" {
		t.Errorf("output %s", short.Output)
	}
	if _, err := os.Stat(short.Output); err != nil {
		t.Errorf("output not written: %v", err)
	}
	if got := strings.Join(h.renderer.cards, ","); got != "title-0,c1-0,c2-0" {
		t.Errorf("cards %s", got)
	}

	if h.narrator.voices["title-0.mp3"] != "narrator" {
		t.Errorf("title voice %q", h.narrator.voices["title-0.mp3"])
	}
	for _, clip := range []string{"c1-0.mp3", "c2-0.mp3"} {
		v := h.narrator.voices[clip]
		if v != "v1" && v != "v2" && v != "v3" {
			t.Errorf("%s voice %q", clip, v)
		}
	}

	if len(h.toolkit.encoded) != 1 {
		t.Fatalf("expected one encode, got %d", len(h.toolkit.encoded))
	}

	entries, err := os.ReadDir(h.cfg.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("work dir not cleaned: %d entries", len(entries))
	}
}

func TestMakeShortAnimatedHeader(t *testing.T) {
	h := newHarness(t)
	h.cfg.Images.AnimatedHeader = "header.gif"
	h.cfg.KeepWorkDir = true

	if _, err := h.pipeline.MakeShort(context.Background(), testThreads[0].Link()); err != nil {
		t.Fatalf("MakeShort: %v", err)
	}
	if len(h.renderer.animated) != 1 || filepath.Base(h.renderer.animated[0]) != "title-0.gif" {
		t.Errorf("animated %v", h.renderer.animated)
	}
	if got := strings.Join(h.renderer.cards, ","); got != "c1-0,c2-0" {
		t.Errorf("cards %s", got)
	}
	entries, _ := os.ReadDir(h.cfg.WorkDir)
	if len(entries) != 1 {
		t.Errorf("expected kept work dir, got %d entries", len(entries))
	}
}

func TestMakeShortUnknownThread(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipeline.MakeShort(context.Background(), "https://www.reddit.com/r/AskReddit/comments/zz/gone/")
	if !errors.Is(err, source.ErrThreadNotFound) {
		t.Errorf("expected ErrThreadNotFound, got %v", err)
	}
	if stageOf(err) != StageFetch {
		t.Errorf("stage %s", stageOf(err))
	}
}

func TestRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.narrator.failOn = "boom"

	if err := h.tracker.MarkProcessed(ctx, testThreads[2].Link()); err != nil {
		t.Fatal(err)
	}

	report, err := h.pipeline.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Candidates != 3 || report.Skipped != 1 || report.Selected != 2 {
		t.Errorf("report %+v", report)
	}
	if len(report.Made) != 1 || report.Made[0].ThreadID != "a1" {
		t.Errorf("made %+v", report.Made)
	}
	if len(report.Uploaded) != 1 || !strings.HasPrefix(report.Uploaded[0].Location, "fake://") {
		t.Errorf("uploaded %+v", report.Uploaded)
	}
	if len(report.Failed) != 1 || report.Failed[0].Stage != StageNarrate || !errors.Is(report.Failed[0].Err, narration.ErrSynthesis) {
		t.Fatalf("failed %+v", report.Failed)
	}

	done, _ := h.tracker.HasProcessed(ctx, testThreads[0].Link())
	if !done {
		t.Error("uploaded thread should be marked processed")
	}
	done, _ = h.tracker.HasProcessed(ctx, testThreads[1].Link())
	if done {
		t.Error("failed thread must not be marked processed")
	}
}

func TestRunUploadFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.uploader.err = upload.ErrUploadFailed

	report, err := h.pipeline.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Made) != 3 || len(report.Uploaded) != 0 || len(report.Failed) != 3 {
		t.Errorf("report %+v", report)
	}
	for _, f := range report.Failed {
		if f.Stage != StageUpload {
			t.Errorf("stage %s for %s", f.Stage, f.Link)
		}
		if done, _ := h.tracker.HasProcessed(ctx, f.Link); done {
			t.Errorf("%s marked processed after failed upload", f.Link)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.pipeline.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(h.toolkit.encoded) != 0 {
		t.Error("nothing should render after cancel")
	}
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	doc := `title: Hello there
background: bg.mp4
music: /abs/music.mp3
segments:
  - visual: cards/title.png
    audio: audio/title.mp3
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p.Background != filepath.Join(dir, "bg.mp4") || p.Music != "/abs/music.mp3" {
		t.Errorf("backgrounds %q %q", p.Background, p.Music)
	}
	if len(p.Segments) != 1 || p.Segments[0].Visual != filepath.Join(dir, "cards/title.png") {
		t.Errorf("segments %+v", p.Segments)
	}
	if p.Output != "" {
		t.Errorf("output %q", p.Output)
	}

	if _, err := LoadProject(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing project")
	}
}

func TestRenderProject(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.mp4")
	card := filepath.Join(dir, "title.png")
	clip := filepath.Join(dir, "title.mp3")
	os.WriteFile(bg, []byte("bg"), 0644)
	os.WriteFile(clip, []byte("mp3"), 0644)
	if err := writeCard(card); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "out")
	tk := &fakeToolkit{background: bg}
	proj := &Project{Title: "Hello there", Background: bg, Segments: []ProjectSegment{{Visual: card, Audio: clip}}}

	plan, err := RenderProject(context.Background(), zerolog.Nop(), tk, cfg, proj, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if plan.Timeline.Len() != 1 || plan.Timeline.Total != 2*time.Second || plan.Music != nil {
		t.Errorf("plan %+v", plan)
	}
	if len(tk.encoded) != 0 {
		t.Error("dry run must not encode")
	}

	if _, err := RenderProject(context.Background(), zerolog.Nop(), tk, cfg, proj, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(tk.encoded) != 1 || tk.encoded[0].Output != filepath.Join(cfg.OutputDir, content.OutputName("Hello there")) {
		t.Errorf("encoded %+v", tk.encoded)
	}
}
