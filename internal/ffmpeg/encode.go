package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kikiluvv/threadshorts/pkg/util"
)

// Encode runs a multi-input encode described by opts
func (e *Executor) Encode(ctx context.Context, opts EncodeOptions) error {
	args, err := BuildEncodeArgs(opts)
	if err != nil {
		return fmt.Errorf("invalid encode options: %w", err)
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Dur("duration", opts.Duration).
		Msg("starting encode")

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("encode output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("encode completed")
	return nil
}

// BuildEncodeArgs turns EncodeOptions into ffmpeg arguments, applying defaults
func BuildEncodeArgs(opts EncodeOptions) ([]string, error) {
	if err := validateEncodeOptions(opts); err != nil {
		return nil, err
	}

	var args []string
	for _, in := range opts.Inputs {
		if in.Loop {
			args = append(args, "-loop", "1")
		}
		if in.Seek > 0 {
			args = append(args, "-ss", util.Seconds(in.Seek))
		}
		if in.Duration > 0 {
			args = append(args, "-t", util.Seconds(in.Duration))
		}
		args = append(args, in.Args...)
		args = append(args, "-i", in.Path)
	}

	if opts.FilterComplex != "" {
		args = append(args, "-filter_complex", opts.FilterComplex)
	}
	for _, m := range opts.Maps {
		args = append(args, "-map", m)
	}

	videoCodec := opts.VideoCodec
	if videoCodec == "" {
		videoCodec = DefaultVideoCodec
	}
	args = append(args, "-c:v", videoCodec)

	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	args = append(args, "-preset", preset)

	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	args = append(args, "-crf", strconv.Itoa(crf))

	pixFmt := opts.PixelFormat
	if pixFmt == "" {
		pixFmt = DefaultPixelFormat
	}
	args = append(args, "-pix_fmt", pixFmt)

	fps := opts.FPS
	if fps == 0 {
		fps = DefaultFPS
	}
	args = append(args, "-r", strconv.Itoa(fps))

	audioCodec := opts.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	args = append(args, "-c:a", audioCodec)

	audioBitrate := opts.AudioBitrate
	if audioBitrate == "" {
		audioBitrate = DefaultAudioBitrate
	}
	args = append(args, "-b:a", audioBitrate)

	if opts.Duration > 0 {
		args = append(args, "-t", util.Seconds(opts.Duration))
	}

	args = append(args, "-movflags", "+faststart")
	args = append(args, opts.CustomArgs...)
	args = append(args, opts.Output)

	return args, nil
}

// validateEncodeOptions validates the encode options
func validateEncodeOptions(opts EncodeOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("at least one input is required")
	}
	for i, in := range opts.Inputs {
		if in.Path == "" {
			return fmt.Errorf("input %d has no path", i)
		}
		if in.Seek < 0 || in.Duration < 0 {
			return fmt.Errorf("input %d has a negative seek or duration", i)
		}
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.CRF < 0 || opts.CRF > 51 {
		return fmt.Errorf("CRF must be between 0 and 51")
	}
	if opts.FPS < 0 {
		return fmt.Errorf("FPS cannot be negative")
	}
	if opts.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	return nil
}
