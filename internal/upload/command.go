package upload

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Command runs an external program for every short. The arguments may contain
// {video} and {title} placeholders. The last line of stdout, if any, is the location.
type Command struct {
	logger zerolog.Logger
	argv   []string
}

func NewCommand(logger zerolog.Logger, argv []string) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("upload command is empty")
	}
	return &Command{logger: logger, argv: argv}, nil
}

func (c *Command) Upload(ctx context.Context, video, title string) (Result, error) {
	r := strings.NewReplacer("{video}", video, "{title}", title)
	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = r.Replace(a)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug().Strs("args", args).Msg("running upload command")
	if err := cmd.Run(); err != nil {
		c.logger.Error().
			Err(err).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("upload command failed")
		return Result{}, fmt.Errorf("%w: %s: %v", ErrUploadFailed, args[0], err)
	}

	location := video
	if lines := strings.Split(strings.TrimSpace(stdout.String()), "\n"); lines[len(lines)-1] != "" {
		location = strings.TrimSpace(lines[len(lines)-1])
	}
	return Result{Backend: "command", Location: location}, nil
}
