package ffmpeg

import (
	"context"
	"fmt"
)

// NarrationLoudness is the integrated loudness target for narration clips (LUFS)
const NarrationLoudness = -16.0

// NormalizeAudio applies single-pass EBU R128 loudness normalization to an audio file.
// The output codec follows the output extension.
func (e *Executor) NormalizeAudio(ctx context.Context, input, output string, targetLevel float64) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}
	if input == output {
		return fmt.Errorf("normalization cannot run in place: %s", input)
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Float64("target_level", targetLevel).
		Msg("normalizing audio")

	args := []string{
		"-i", input,
		"-vn",
		"-af", fmt.Sprintf("loudnorm=I=%.1f:TP=-1.5:LRA=11", targetLevel),
		"-ar", "44100",
		output,
	}

	opts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("audio normalization")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("normalize %s: %w", input, err)
	}
	return nil
}
