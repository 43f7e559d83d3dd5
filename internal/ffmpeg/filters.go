package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/threadshorts/pkg/util"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps int) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%d", fps))
	return fb
}

// Crop adds a crop filter
func (fb *FilterBuilder) Crop(width, height, x, y int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("crop=%d:%d:%d:%d", width, height, x, y))
	return fb
}

// SetSAR forces a square sample aspect ratio
func (fb *FilterBuilder) SetSAR() *FilterBuilder {
	fb.filters = append(fb.filters, "setsar=1")
	return fb
}

// Trim cuts a video stream to the given duration
func (fb *FilterBuilder) Trim(d time.Duration) *FilterBuilder {
	if d <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, "trim=duration="+util.Seconds(d))
	return fb
}

// ATrim cuts an audio stream to the given duration
func (fb *FilterBuilder) ATrim(d time.Duration) *FilterBuilder {
	if d <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, "atrim=duration="+util.Seconds(d))
	return fb
}

// ShiftPTS resets timestamps and offsets them by start
func (fb *FilterBuilder) ShiftPTS(start time.Duration) *FilterBuilder {
	if start <= 0 {
		fb.filters = append(fb.filters, "setpts=PTS-STARTPTS")
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", util.Seconds(start)))
	return fb
}

// HoldLastFrame clones the final frame for up to d
func (fb *FilterBuilder) HoldLastFrame(d time.Duration) *FilterBuilder {
	if d <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, "tpad=stop_mode=clone:stop_duration="+util.Seconds(d))
	return fb
}

// Delay offsets every audio channel by d
func (fb *FilterBuilder) Delay(d time.Duration) *FilterBuilder {
	if d <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("adelay=delays=%d:all=1", d.Milliseconds()))
	return fb
}

// Volume scales audio amplitude linearly
func (fb *FilterBuilder) Volume(factor float64) *FilterBuilder {
	fb.filters = append(fb.filters, "volume="+strconv.FormatFloat(factor, 'f', -1, 64))
	return fb
}

// AudioFormat normalises sample format and layout so streams can be mixed
func (fb *FilterBuilder) AudioFormat(sampleRate int) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("aformat=sample_fmts=fltp:sample_rates=%d:channel_layouts=stereo", sampleRate))
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// Graph assembles a -filter_complex graph from labelled chains
type Graph struct {
	chains []string
}

// NewGraph creates an empty filter graph
func NewGraph() *Graph {
	return &Graph{}
}

// Chain appends "[in1][in2]filters[out]"; an empty filter chain becomes a passthrough
func (g *Graph) Chain(inputs []string, filters string, output string) *Graph {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString("[" + in + "]")
	}
	if filters == "" {
		filters = "null"
	}
	b.WriteString(filters)
	if output != "" {
		b.WriteString("[" + output + "]")
	}
	g.chains = append(g.chains, b.String())
	return g
}

// Len reports the number of chains in the graph
func (g *Graph) Len() int {
	return len(g.chains)
}

// String renders the graph for -filter_complex
func (g *Graph) String() string {
	return strings.Join(g.chains, ";")
}

// Overlay returns an overlay filter centering the top layer, active between start and end
func Overlay(start, end time.Duration) string {
	return fmt.Sprintf("overlay=x=(W-w)/2:y=(H-h)/2:eof_action=pass:enable='between(t,%s,%s)'",
		util.Seconds(start), util.Seconds(end))
}

// AMix mixes n audio streams additively, without level normalisation
func AMix(n int, duration string) string {
	if duration == "" {
		duration = "longest"
	}
	return fmt.Sprintf("amix=inputs=%d:duration=%s:dropout_transition=0:normalize=0", n, duration)
}
