package shorts

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kikiluvv/threadshorts/internal/ffmpeg"
)

// audioSampleRate is the common rate narration and music are converted to before mixing
const audioSampleRate = 44100

// BackgroundPlan is the resolved background video layer
type BackgroundPlan struct {
	Path     string
	Width    int
	Height   int
	Duration time.Duration
	Crop     Crop
	Range    Subrange
}

// MusicPlan is the resolved background music track
type MusicPlan struct {
	Path     string
	Duration time.Duration
	Range    Subrange
	Volume   float64
}

// VisualPlan is a positioned segment with its overlay size
type VisualPlan struct {
	Positioned
	Width  int
	Height int
}

// Plan holds every geometry and timing decision of a render
type Plan struct {
	Timeline   Timeline
	Background BackgroundPlan
	Music      *MusicPlan
	Visuals    []VisualPlan

	FrameWidth  int
	FrameHeight int
	FPS         int
}

// Compose turns a plan into a single ffmpeg encode. Input order is background,
// every visual, every narration clip, then music.
func Compose(plan Plan, output string) (ffmpeg.EncodeOptions, error) {
	if len(plan.Visuals) == 0 {
		return ffmpeg.EncodeOptions{}, ErrNoSegments
	}
	if plan.Timeline.Total <= 0 {
		return ffmpeg.EncodeOptions{}, ErrEmptyTimeline
	}
	total := plan.Timeline.Total

	inputs := []ffmpeg.Input{{
		Path:     plan.Background.Path,
		Seek:     plan.Background.Range.Start,
		Duration: total,
	}}
	graph := ffmpeg.NewGraph()

	bg := plan.Background.Crop
	graph.Chain([]string{"0:v"}, ffmpeg.NewFilterBuilder().
		Crop(bg.CropWidth(), bg.CropHeight(), bg.X1, bg.Y1).
		Scale(plan.FrameWidth, plan.FrameHeight).
		SetSAR().
		FPS(plan.FPS).
		Trim(total).
		ShiftPTS(0).
		Build(), "bg")

	// visuals, stacked over the background in timeline order
	current := "bg"
	for i, v := range plan.Visuals {
		idx := len(inputs)
		in := ffmpeg.Input{Path: v.Visual}
		fb := ffmpeg.NewFilterBuilder()
		if v.Animated() {
			fb.FPS(plan.FPS).
				Scale(v.Width, v.Height).
				SetSAR().
				HoldLastFrame(v.Duration)
		} else {
			in.Loop = true
			in.Duration = v.Duration
			fb.Scale(v.Width, v.Height).
				SetSAR().
				FPS(plan.FPS)
		}
		fb.Trim(v.Duration).ShiftPTS(v.Start)
		inputs = append(inputs, in)

		label := "v" + strconv.Itoa(i)
		graph.Chain([]string{strconv.Itoa(idx) + ":v"}, fb.Build(), label)

		next := "o" + strconv.Itoa(i)
		if i == len(plan.Visuals)-1 {
			next = "vout"
		}
		graph.Chain([]string{current, label}, ffmpeg.Overlay(v.Start, v.End()), next)
		current = next
	}

	// narration, each clip bounded to and delayed into its window
	var mixLabels []string
	for i, v := range plan.Visuals {
		idx := len(inputs)
		inputs = append(inputs, ffmpeg.Input{Path: v.Audio})

		label := "a" + strconv.Itoa(i)
		graph.Chain([]string{strconv.Itoa(idx) + ":a"}, ffmpeg.NewFilterBuilder().
			AudioFormat(audioSampleRate).
			ATrim(v.Duration).
			Delay(v.Start).
			Build(), label)
		mixLabels = append(mixLabels, label)
	}

	if m := plan.Music; m != nil {
		if m.Range.Duration() < total {
			return ffmpeg.EncodeOptions{}, fmt.Errorf("music window %v: %w", m.Range.Duration(), ErrAssetTooShort)
		}
		idx := len(inputs)
		inputs = append(inputs, ffmpeg.Input{
			Path:     m.Path,
			Seek:     m.Range.Start,
			Duration: total,
		})
		graph.Chain([]string{strconv.Itoa(idx) + ":a"}, ffmpeg.NewFilterBuilder().
			AudioFormat(audioSampleRate).
			Volume(m.Volume).
			Build(), "music")
		mixLabels = append(mixLabels, "music")
	}

	if len(mixLabels) == 1 {
		graph.Chain(mixLabels, "anull", "aout")
	} else {
		graph.Chain(mixLabels, ffmpeg.AMix(len(mixLabels), "longest"), "aout")
	}

	return ffmpeg.EncodeOptions{
		Inputs:        inputs,
		FilterComplex: graph.String(),
		Maps:          []string{"[vout]", "[aout]"},
		Output:        output,
		FPS:           plan.FPS,
		Duration:      total,
	}, nil
}
