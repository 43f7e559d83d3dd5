package shorts

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"github.com/kikiluvv/threadshorts/internal/ffmpeg"
	"github.com/kikiluvv/threadshorts/pkg/util"
)

// DefaultMusicVolume is the linear gain applied to background music
const DefaultMusicVolume = 0.3

// Toolkit is the media tooling a Creator renders with. *ffmpeg.Executor satisfies it.
type Toolkit interface {
	DurationProber
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
	Encode(ctx context.Context, opts ffmpeg.EncodeOptions) error
}

// Option configures a Creator
type Option func(*Creator)

// WithRandomSource pins background and music sampling
func WithRandomSource(rng RandomSource) Option {
	return func(c *Creator) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithLogger sets the creator logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Creator) {
		c.logger = logger.With().Str("component", "shorts").Logger()
	}
}

// WithMusicVolume overrides the background music gain
func WithMusicVolume(v float64) Option {
	return func(c *Creator) {
		if v >= 0 {
			c.musicVolume = v
		}
	}
}

// WithFrame overrides the output frame size
func WithFrame(width, height int) Option {
	return func(c *Creator) {
		c.width, c.height = width, height
	}
}

// WithFPS overrides the output frame rate
func WithFPS(fps int) Option {
	return func(c *Creator) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithEncoding sets the x264 preset and CRF
func WithEncoding(preset string, crf int) Option {
	return func(c *Creator) {
		c.preset, c.crf = preset, crf
	}
}

// WithProgress receives encoder progress updates
func WithProgress(fn ffmpeg.ProgressFunc) Option {
	return func(c *Creator) {
		c.progress = fn
	}
}

// Creator accumulates segments and backgrounds and renders them once
type Creator struct {
	tk     Toolkit
	logger zerolog.Logger
	rng    RandomSource

	segments        []Segment
	backgroundVideo string
	backgroundMusic string

	musicVolume float64
	width       int
	height      int
	fps         int
	preset      string
	crf         int
	progress    ffmpeg.ProgressFunc

	rendered bool
}

// New creates an empty creator
func New(tk Toolkit, opts ...Option) *Creator {
	c := &Creator{
		tk:          tk,
		logger:      zerolog.Nop(),
		rng:         DefaultRandom(),
		musicVolume: DefaultMusicVolume,
		width:       TargetWidth,
		height:      TargetHeight,
		fps:         TargetFPS,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddSegment appends a visual/narration pair in presentation order
func (c *Creator) AddSegment(visual, audio string) *Creator {
	c.segments = append(c.segments, Segment{Visual: visual, Audio: audio})
	return c
}

// SetBackgroundVideo sets the background video. Its audio is never used.
func (c *Creator) SetBackgroundVideo(path string) *Creator {
	c.backgroundVideo = path
	return c
}

// SetBackgroundMusic sets optional background music
func (c *Creator) SetBackgroundMusic(path string) *Creator {
	c.backgroundMusic = path
	return c
}

// Segments returns a copy of the registered segments
func (c *Creator) Segments() []Segment {
	out := make([]Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

func (c *Creator) validate(output string, needOutput bool) error {
	if needOutput && output == "" {
		return stageError(StageValidate, "", ErrNoOutputPath)
	}
	if c.backgroundVideo == "" {
		return stageError(StageValidate, "", ErrNoBackgroundVideo)
	}
	if len(c.segments) == 0 {
		return stageError(StageValidate, "", ErrNoSegments)
	}

	paths := []string{c.backgroundVideo}
	if c.backgroundMusic != "" {
		paths = append(paths, c.backgroundMusic)
	}
	for _, s := range c.segments {
		paths = append(paths, s.Visual, s.Audio)
	}
	for _, p := range paths {
		if !util.FileExists(p) {
			return stageError(StageValidate, p, ErrAssetNotFound)
		}
	}
	if c.width <= 0 || c.height <= 0 {
		return stageError(StageValidate, "", ErrInvalidDimensions)
	}
	return nil
}

// Plan validates the creator and resolves the timeline, crop and sampled windows
// without encoding anything.
func (c *Creator) Plan(ctx context.Context) (Plan, error) {
	if err := c.validate("", false); err != nil {
		return Plan{}, err
	}
	return c.plan(ctx)
}

func (c *Creator) plan(ctx context.Context) (Plan, error) {
	tl, err := BuildTimeline(ctx, c.tk, c.segments)
	if err != nil {
		return Plan{}, err
	}
	if tl.Total <= 0 {
		return Plan{}, stageError(StageProbe, "", ErrEmptyTimeline)
	}

	plan := Plan{
		Timeline:    tl,
		FrameWidth:  c.width,
		FrameHeight: c.height,
		FPS:         c.fps,
	}

	bgInfo, err := c.tk.Probe(ctx, c.backgroundVideo)
	if err != nil {
		return Plan{}, stageError(StageProbe, c.backgroundVideo, err)
	}
	if !bgInfo.HasVideo {
		return Plan{}, stageError(StageProbe, c.backgroundVideo, errors.New("no video stream"))
	}
	crop, err := ResolveCrop(bgInfo.Width, bgInfo.Height, c.width, c.height)
	if err != nil {
		return Plan{}, stageError(StageProbe, c.backgroundVideo, err)
	}
	bgRange, err := SampleSubrange(c.rng, bgInfo.Duration, tl.Total)
	if err != nil {
		return Plan{}, stageError(StageSample, c.backgroundVideo, err)
	}
	plan.Background = BackgroundPlan{
		Path:     c.backgroundVideo,
		Width:    bgInfo.Width,
		Height:   bgInfo.Height,
		Duration: bgInfo.Duration,
		Crop:     crop,
		Range:    bgRange,
	}

	if c.backgroundMusic != "" {
		musicDur, err := c.tk.ProbeDuration(ctx, c.backgroundMusic)
		if err != nil {
			return Plan{}, stageError(StageProbe, c.backgroundMusic, err)
		}
		musicRange, err := SampleSubrange(c.rng, musicDur, tl.Total)
		if err != nil {
			return Plan{}, stageError(StageSample, c.backgroundMusic, err)
		}
		plan.Music = &MusicPlan{
			Path:     c.backgroundMusic,
			Duration: musicDur,
			Range:    musicRange,
			Volume:   c.musicVolume,
		}
	}

	for _, p := range tl.Segments {
		srcW, srcH, err := c.visualDimensions(ctx, p.Visual)
		if err != nil {
			return Plan{}, stageError(StageProbe, p.Visual, err)
		}
		w, h, err := VisualSize(srcW, srcH, c.width, VisualWidthRatio)
		if err != nil {
			return Plan{}, stageError(StageProbe, p.Visual, err)
		}
		plan.Visuals = append(plan.Visuals, VisualPlan{Positioned: p, Width: w, Height: h})
	}

	return plan, nil
}

// visualDimensions reads the image header, falling back to ffprobe for formats
// the image package cannot decode.
func (c *Creator) visualDimensions(ctx context.Context, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, decodeErr := image.DecodeConfig(f)
	f.Close()
	if decodeErr == nil {
		return cfg.Width, cfg.Height, nil
	}

	info, err := c.tk.Probe(ctx, path)
	if err != nil {
		return 0, 0, fmt.Errorf("read dimensions: %w", err)
	}
	return info.Width, info.Height, nil
}

// Render validates, plans and encodes the short to output. A creator renders at most
// once; a partially written output is removed on failure.
func (c *Creator) Render(ctx context.Context, output string) error {
	if c.rendered {
		return ErrAlreadyRendered
	}
	if err := c.validate(output, true); err != nil {
		return err
	}
	c.rendered = true

	start := time.Now()
	plan, err := c.plan(ctx)
	if err != nil {
		return err
	}

	c.logger.Info().
		Int("segments", plan.Timeline.Len()).
		Dur("total", plan.Timeline.Total).
		Dur("bg_start", plan.Background.Range.Start).
		Bool("music", plan.Music != nil).
		Str("output", output).
		Msg("rendering short")

	opts, err := Compose(plan, output)
	if err != nil {
		return stageError(StageCompose, "", err)
	}
	opts.Preset = c.preset
	opts.CRF = c.crf
	opts.ProgressFunc = c.progress

	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return stageError(StageEncode, output, err)
	}
	if err := c.tk.Encode(ctx, opts); err != nil {
		util.CleanupFiles(output)
		return stageError(StageEncode, output, err)
	}

	c.logger.Info().
		Str("output", output).
		Dur("elapsed", time.Since(start)).
		Msg("short rendered")
	return nil
}
