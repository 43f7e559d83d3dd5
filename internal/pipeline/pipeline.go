package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/internal/ai"
	"github.com/kikiluvv/threadshorts/internal/backgrounds"
	"github.com/kikiluvv/threadshorts/internal/config"
	"github.com/kikiluvv/threadshorts/internal/content"
	"github.com/kikiluvv/threadshorts/internal/ffmpeg"
	"github.com/kikiluvv/threadshorts/internal/imaging"
	"github.com/kikiluvv/threadshorts/internal/narration"
	"github.com/kikiluvv/threadshorts/internal/shorts"
	"github.com/kikiluvv/threadshorts/internal/source"
	"github.com/kikiluvv/threadshorts/internal/tracker"
	"github.com/kikiluvv/threadshorts/internal/upload"
	"github.com/kikiluvv/threadshorts/pkg/util"
)

// Stages reported in Failure
const (
	StageFetch   = "fetch"
	StageScript  = "script"
	StageImages  = "images"
	StageNarrate = "narrate"
	StageRender  = "render"
	StageUpload  = "upload"
	StageTrack   = "track"
)

// ThreadSource lists and fetches threads. *source.Client satisfies it.
type ThreadSource interface {
	TopThreads(ctx context.Context, subreddit string, limit int, timeFilter string, allowNSFW bool) ([]source.Thread, error)
	Thread(ctx context.Context, threadURL string) (*source.Thread, error)
}

// CardRenderer draws unit cards. *imaging.Renderer satisfies it.
type CardRenderer interface {
	RenderCard(u *content.Unit, dir string) (string, error)
	AnimatedCard(headerGIF, text, output string) error
	Close() error
}

// Deps are the collaborators of a Pipeline
type Deps struct {
	Source      ThreadSource
	Selector    *ai.Selector
	Images      CardRenderer
	Narrator    narration.Narrator
	Backgrounds *backgrounds.Registry
	Toolkit     shorts.Toolkit
	Tracker     tracker.Tracker
	Uploader    upload.Uploader
	Random      shorts.RandomSource
}

// Pipeline turns Reddit threads into published shorts
type Pipeline struct {
	logger zerolog.Logger
	cfg    *config.Config
	deps   Deps
}

// New creates a pipeline from explicit collaborators
func New(logger zerolog.Logger, cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline config is required")
	}
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline needs a thread source")
	case deps.Images == nil:
		return nil, errors.New("pipeline needs a card renderer")
	case deps.Narrator == nil:
		return nil, errors.New("pipeline needs a narrator")
	case deps.Backgrounds == nil:
		return nil, errors.New("pipeline needs a background registry")
	case deps.Toolkit == nil:
		return nil, errors.New("pipeline needs a media toolkit")
	}
	if deps.Selector == nil {
		deps.Selector = ai.NewSelector(logger, ai.NewHeuristicScorer(), cfg.Selection.Count)
	}
	if deps.Uploader == nil {
		deps.Uploader = upload.None{}
	}
	if deps.Random == nil {
		deps.Random = shorts.DefaultRandom()
	}

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		cfg:    cfg,
		deps:   deps,
	}, nil
}

// Build wires the production collaborators described by cfg
func Build(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	reddit := source.NewClient(ctx, logger, source.Options{
		ClientID:     cfg.Source.ClientID,
		ClientSecret: cfg.Source.ClientSecret,
		UserAgent:    cfg.Source.UserAgent,
	})

	images, err := imaging.New(logger, imaging.Options{
		Width:    cfg.Render.Width,
		FontPath: cfg.Images.FontPath,
		FontSize: cfg.Images.FontSize,
		DarkMode: cfg.Images.DarkMode,
	})
	if err != nil {
		return nil, err
	}

	narrator, err := narration.New(logger, cfg.Narration)
	if err != nil {
		images.Close()
		return nil, err
	}
	if cfg.Narration.Normalize {
		narrator = narration.Normalized(narrator, exec)
	}

	registry, err := backgrounds.Load(cfg.Backgrounds)
	if err != nil {
		images.Close()
		return nil, err
	}

	var scorer ai.Scorer = ai.NewHeuristicScorer()
	if cfg.Selection.UseLLM {
		llm, err := ai.NewLLMScorer(logger, ai.LLMOptions{APIKey: cfg.Narration.OpenAIKey, Model: cfg.Selection.Model})
		if err != nil {
			logger.Warn().Err(err).Msg("llm selection unavailable, using heuristics")
		} else {
			w := cfg.Selection.HeuristicWeight
			scorer = ai.NewCompositeScorer([]ai.Scorer{ai.NewHeuristicScorer(), llm}, []float64{w, 1 - w})
		}
	}

	track, err := tracker.New(ctx, logger, cfg.Tracker)
	if err != nil {
		images.Close()
		return nil, err
	}

	uploader, err := upload.New(ctx, logger, cfg.Upload)
	if err != nil {
		images.Close()
		track.Close()
		return nil, err
	}

	return New(logger, cfg, Deps{
		Source:      reddit,
		Selector:    ai.NewSelector(logger, scorer, cfg.Selection.Count),
		Images:      images,
		Narrator:    narrator,
		Backgrounds: registry,
		Toolkit:     exec,
		Tracker:     track,
		Uploader:    uploader,
	})
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error
	if p.deps.Selector != nil {
		errs = append(errs, p.deps.Selector.Close())
	}
	if p.deps.Tracker != nil {
		errs = append(errs, p.deps.Tracker.Close())
	}
	errs = append(errs, p.deps.Images.Close())
	return errors.Join(errs...)
}

// MakeShort renders the short of a single thread
func (p *Pipeline) MakeShort(ctx context.Context, threadURL string) (*Short, error) {
	thread, err := p.deps.Source.Thread(ctx, threadURL)
	if err != nil {
		return nil, fail(StageFetch, err)
	}
	return p.makeShort(ctx, thread)
}

type stageErr struct {
	stage string
	err   error
}

func (e *stageErr) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageErr) Unwrap() error { return e.err }

func fail(stage string, err error) error {
	return &stageErr{stage: stage, err: err}
}

func stageOf(err error) string {
	var se *stageErr
	if errors.As(err, &se) {
		return se.stage
	}
	return StageRender
}

func (p *Pipeline) makeShort(ctx context.Context, thread *source.Thread) (*Short, error) {
	start := time.Now()
	log := p.logger.With().Str("thread", thread.ID).Logger()

	comments := source.FilterComments(thread.Comments, p.cfg.Source.Comments)
	script, err := content.Build(*thread, comments, p.cfg.Source.CharacterThreshold)
	if err != nil {
		return nil, fail(StageScript, err)
	}

	workDir := filepath.Join(p.cfg.WorkDir, uuid.NewString())
	if err := util.EnsureDir(workDir); err != nil {
		return nil, fail(StageScript, err)
	}
	if !p.cfg.KeepWorkDir {
		defer os.RemoveAll(workDir)
	}

	log.Info().
		Str("title", script.Title).
		Int("units", len(script.Units)).
		Int("comments", len(comments)).
		Str("work_dir", workDir).
		Msg("making short")

	if err := p.renderCards(script, workDir); err != nil {
		return nil, fail(StageImages, err)
	}
	if err := p.narrate(ctx, script, workDir); err != nil {
		return nil, fail(StageNarrate, err)
	}

	output := filepath.Join(p.cfg.OutputDir, script.OutputName())
	if err := p.assemble(ctx, script, output); err != nil {
		return nil, fail(StageRender, err)
	}

	short := &Short{
		ThreadID: thread.ID,
		Title:    script.Title,
		Link:     script.Link,
		Output:   output,
		Segments: len(script.Units),
		Elapsed:  time.Since(start),
	}
	log.Info().
		Str("output", output).
		Dur("elapsed", short.Elapsed).
		Msg("short complete")
	return short, nil
}

func (p *Pipeline) renderCards(script *content.Script, dir string) error {
	header := p.cfg.Images.AnimatedHeader
	for _, u := range script.All() {
		if u.Kind == content.KindTitle && header != "" {
			out := filepath.Join(dir, u.ID+".gif")
			if err := p.deps.Images.AnimatedCard(header, u.Text, out); err != nil {
				return err
			}
			u.Visual = out
			continue
		}
		if _, err := p.deps.Images.RenderCard(u, dir); err != nil {
			return err
		}
	}
	return nil
}

// narrate gives the title and body the default voice and every comment its own random voice
func (p *Pipeline) narrate(ctx context.Context, script *content.Script, dir string) error {
	n := p.deps.Narrator
	voices := map[int]string{0: n.DefaultVoice()}

	reqs := make([]narration.Request, 0, len(script.Units))
	for _, u := range script.All() {
		voice, ok := voices[u.Group]
		if !ok {
			voice = narration.PickVoice(n, p.deps.Random)
			voices[u.Group] = voice
		}
		u.Voice = voice
		u.Audio = filepath.Join(dir, u.ID+".mp3")
		reqs = append(reqs, narration.Request{Text: u.Speech, Voice: voice, Output: u.Audio})
	}
	return narration.SynthesizeAll(ctx, n, reqs, p.cfg.Concurrency)
}

func (p *Pipeline) creator() *shorts.Creator {
	return shorts.New(p.deps.Toolkit,
		shorts.WithRandomSource(p.deps.Random),
		shorts.WithLogger(p.logger),
		shorts.WithMusicVolume(p.cfg.Render.MusicVolume),
		shorts.WithFrame(p.cfg.Render.Width, p.cfg.Render.Height),
		shorts.WithFPS(p.cfg.Render.FPS),
		shorts.WithEncoding(p.cfg.FFmpeg.Preset, p.cfg.FFmpeg.CRF),
	)
}

func (p *Pipeline) assemble(ctx context.Context, script *content.Script, output string) error {
	name, video, err := p.deps.Backgrounds.Pick(p.cfg.Backgrounds.Default, p.deps.Random)
	if err != nil {
		return err
	}

	c := p.creator().SetBackgroundVideo(video)
	music, err := p.deps.Backgrounds.PickMusic(p.deps.Random)
	switch {
	case err == nil:
		c.SetBackgroundMusic(music)
	case errors.Is(err, backgrounds.ErrNoMusic):
	default:
		return err
	}

	for _, u := range script.All() {
		c.AddSegment(u.Visual, u.Audio)
	}

	p.logger.Debug().
		Str("background", name).
		Str("music", music).
		Msg("assembling short")
	return c.Render(ctx, output)
}

// Run makes shorts from the top threads of the configured subreddit. Threads
// already processed are skipped, one thread's failure does not stop the batch and a
// thread is marked processed only once its short was made and uploaded.
func (p *Pipeline) Run(ctx context.Context) (*BatchReport, error) {
	src := p.cfg.Source
	threads, err := p.deps.Source.TopThreads(ctx, src.Subreddit, src.SearchLimit, src.TimeFilter, src.AllowNSFW)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	report := &BatchReport{Candidates: len(threads)}
	fresh := make([]source.Thread, 0, len(threads))
	for _, t := range threads {
		done, err := p.processed(ctx, t.Link())
		if err != nil {
			return nil, err
		}
		if done {
			report.Skipped++
			continue
		}
		fresh = append(fresh, t)
	}

	selected, err := p.deps.Selector.Select(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("select threads: %w", err)
	}
	report.Selected = len(selected)

	for _, r := range selected {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		p.runOne(ctx, r.Thread, report)
	}

	p.logger.Info().
		Int("candidates", report.Candidates).
		Int("skipped", report.Skipped).
		Int("made", len(report.Made)).
		Int("uploaded", len(report.Uploaded)).
		Int("failed", len(report.Failed)).
		Msg("batch complete")
	return report, nil
}

func (p *Pipeline) processed(ctx context.Context, link string) (bool, error) {
	if p.deps.Tracker == nil {
		return false, nil
	}
	done, err := p.deps.Tracker.HasProcessed(ctx, link)
	if err != nil {
		return false, fmt.Errorf("check processed %s: %w", link, err)
	}
	return done, nil
}

func (p *Pipeline) runOne(ctx context.Context, t source.Thread, report *BatchReport) {
	link := t.Link()
	record := func(stage string, err error) {
		p.logger.Error().Err(err).Str("thread", t.ID).Str("stage", stage).Msg("thread failed")
		report.Failed = append(report.Failed, Failure{Link: link, Stage: stage, Err: err})
	}

	short, err := p.MakeShort(ctx, link)
	if err != nil {
		record(stageOf(err), err)
		return
	}
	report.Made = append(report.Made, *short)

	uploaded, err := p.Publish(ctx, short)
	if uploaded != nil {
		report.Uploaded = append(report.Uploaded, *uploaded)
	}
	if err != nil {
		record(stageOf(err), err)
	}
}

// Publish uploads a short and marks its thread processed. A thread whose upload
// fails stays unprocessed so the next run retries it.
func (p *Pipeline) Publish(ctx context.Context, short *Short) (*UploadedShort, error) {
	res, err := p.deps.Uploader.Upload(ctx, short.Output, short.Title)
	if err != nil {
		return nil, fail(StageUpload, err)
	}
	uploaded := &UploadedShort{Short: *short, Backend: res.Backend, Location: res.Location}

	if p.deps.Tracker != nil {
		if err := p.deps.Tracker.MarkProcessed(ctx, short.Link); err != nil {
			return uploaded, fail(StageTrack, err)
		}
	}
	p.logger.Info().
		Str("thread", short.ThreadID).
		Str("backend", res.Backend).
		Str("location", res.Location).
		Msg("short published")
	return uploaded, nil
}

// RenderProject assembles a project file. With dryRun the plan is resolved and
// returned without encoding; otherwise the plan is nil.
func RenderProject(ctx context.Context, logger zerolog.Logger, tk shorts.Toolkit, cfg *config.Config, proj *Project, dryRun bool) (*shorts.Plan, error) {
	c := shorts.New(tk,
		shorts.WithLogger(logger),
		shorts.WithMusicVolume(cfg.Render.MusicVolume),
		shorts.WithFrame(cfg.Render.Width, cfg.Render.Height),
		shorts.WithFPS(cfg.Render.FPS),
		shorts.WithEncoding(cfg.FFmpeg.Preset, cfg.FFmpeg.CRF),
	)
	c.SetBackgroundVideo(proj.Background)
	if proj.Music != "" {
		c.SetBackgroundMusic(proj.Music)
	}
	for _, s := range proj.Segments {
		c.AddSegment(s.Visual, s.Audio)
	}

	if dryRun {
		plan, err := c.Plan(ctx)
		if err != nil {
			return nil, err
		}
		return &plan, nil
	}

	output := proj.Output
	if output == "" {
		output = filepath.Join(cfg.OutputDir, content.OutputName(proj.Title))
	}
	return nil, c.Render(ctx, output)
}
