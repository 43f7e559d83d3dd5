package shorts

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Segment pairs a visual asset with the narration shown over it
type Segment struct {
	Visual string
	Audio  string
}

// Animated reports whether the visual is an animation rather than a still image
func (s Segment) Animated() bool {
	return strings.EqualFold(filepath.Ext(s.Visual), ".gif")
}

// Positioned is a segment placed on the timeline for [Start, Start+Duration)
type Positioned struct {
	Segment
	Index    int
	Start    time.Duration
	Duration time.Duration
}

// End returns the exclusive end of the segment's window
func (p Positioned) End() time.Duration { return p.Start + p.Duration }

// Timeline is the gapless sequence of positioned segments
type Timeline struct {
	Segments []Positioned
	Total    time.Duration
}

// Len returns the number of segments on the timeline
func (t Timeline) Len() int { return len(t.Segments) }

// DurationProber reports the playable duration of a media file
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// BuildTimeline probes every segment's audio in order and lays the segments end to end
func BuildTimeline(ctx context.Context, prober DurationProber, segments []Segment) (Timeline, error) {
	tl := Timeline{Segments: make([]Positioned, 0, len(segments))}

	var cursor time.Duration
	for i, seg := range segments {
		d, err := prober.ProbeDuration(ctx, seg.Audio)
		if err != nil {
			return Timeline{}, stageError(StageProbe, seg.Audio, err)
		}
		tl.Segments = append(tl.Segments, Positioned{
			Segment:  seg,
			Index:    i,
			Start:    cursor,
			Duration: d,
		})
		cursor += d
	}
	tl.Total = cursor

	return tl, nil
}
