package shorts

import (
	"errors"
	"fmt"
)

// Precondition errors. All of them are returned before any probing or encoding starts.
var (
	ErrNoBackgroundVideo = errors.New("no background video set")
	ErrNoSegments        = errors.New("no segments added")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrNoOutputPath      = errors.New("output path is required")
	ErrAlreadyRendered   = errors.New("creator has already rendered")
	ErrInvalidDimensions = errors.New("dimensions must be positive")
	ErrAssetTooShort     = errors.New("asset is shorter than the timeline")
	ErrEmptyTimeline     = errors.New("required duration must be positive")
)

// Render stages reported in RenderError
const (
	StageValidate = "validate"
	StageProbe    = "probe"
	StageSample   = "sample"
	StageCompose  = "compose"
	StageEncode   = "encode"
)

// RenderError identifies the stage and asset that made a render fail
type RenderError struct {
	Stage string
	Path  string
	Err   error
}

func (e *RenderError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func stageError(stage, path string, err error) error {
	return &RenderError{Stage: stage, Path: path, Err: err}
}
