package narration

import (
	"context"
	"os"
	"strings"

	"github.com/kikiluvv/threadshorts/internal/ffmpeg"
)

// Normalizer wraps a Narrator and loudness-normalizes every clip it produces
type Normalizer struct {
	Narrator
	exec   *ffmpeg.Executor
	target float64
}

// Normalized returns n with loudness normalization to ffmpeg.NarrationLoudness
func Normalized(n Narrator, exec *ffmpeg.Executor) *Normalizer {
	return &Normalizer{Narrator: n, exec: exec, target: ffmpeg.NarrationLoudness}
}

func (n *Normalizer) Synthesize(ctx context.Context, req Request) error {
	final := req.Output
	req.Output = strings.TrimSuffix(final, ".mp3") + ".raw.mp3"
	if err := n.Narrator.Synthesize(ctx, req); err != nil {
		return err
	}
	defer os.Remove(req.Output)
	return n.exec.NormalizeAudio(ctx, req.Output, final, n.target)
}
