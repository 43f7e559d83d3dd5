package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// generateTestVideo renders a 2 second 320x240 clip with a sine tone
func generateTestVideo(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "test_with_audio.mp4")
	cmd := exec.Command("ffmpeg", "-f", "lavfi", "-i", "sine=frequency=1000:duration=2",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=30",
		"-pix_fmt", "yuv420p", "-shortest", "-y", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not generate test video: %v: %s", err, out)
	}
	return path
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	e, err := New(logger, Options{Threads: 2})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	if e.FFmpegPath() == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.FFprobePath() == "" {
		t.Error("ffprobe path is empty")
	}
	t.Logf("ffmpeg: %s", e.FFmpegPath())
}

func TestExecutorMissingBinary(t *testing.T) {
	_, err := New(zerolog.Nop(), Options{FFmpegPath: "definitely-not-ffmpeg-binary"})
	if err == nil {
		t.Fatal("expected error for missing ffmpeg binary")
	}
}

func TestProbe(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	path := generateTestVideo(t, t.TempDir())

	info, err := e.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", info.Width, info.Height)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("expected both streams, video=%v audio=%v", info.HasVideo, info.HasAudio)
	}
	if info.Duration < 1900*time.Millisecond || info.Duration > 2100*time.Millisecond {
		t.Errorf("expected ~2s duration, got %v", info.Duration)
	}
	t.Logf("Video info: %dx%d, %.2f fps, duration: %v", info.Width, info.Height, info.FPS, info.Duration)
}

func TestProbeInvalidFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	ctx := context.Background()

	if _, err := e.Probe(ctx, "nonexistent.mp4"); err == nil {
		t.Error("Probe should fail for non-existent file")
	}

	invalidPath := filepath.Join(t.TempDir(), "invalid.txt")
	if err := os.WriteFile(invalidPath, []byte("not a video"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ProbeDuration(ctx, invalidPath); err == nil {
		t.Error("ProbeDuration should fail for invalid media file")
	}
}

func TestEncodeWithProgress(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	dir := t.TempDir()
	src := generateTestVideo(t, dir)
	out := filepath.Join(dir, "out.mp4")

	graph := NewGraph().
		Chain([]string{"0:v"}, NewFilterBuilder().Scale(160, 120).SetSAR().Build(), "v").
		Chain([]string{"0:a"}, NewFilterBuilder().Volume(0.5).Build(), "a")

	var updates int
	err := e.Encode(context.Background(), EncodeOptions{
		Inputs:        []Input{{Path: src}},
		FilterComplex: graph.String(),
		Maps:          []string{"[v]", "[a]"},
		Output:        out,
		Preset:        "ultrafast",
		Duration:      time.Second,
		ProgressFunc:  func(*Progress) { updates++ },
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if updates == 0 {
		t.Error("expected at least one progress update")
	}

	info, err := e.Probe(context.Background(), out)
	if err != nil {
		t.Fatalf("probe output: %v", err)
	}
	if info.Width != 160 || info.Height != 120 {
		t.Errorf("expected 160x120, got %dx%d", info.Width, info.Height)
	}
}

func TestRunFailureReportsOutput(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	err := e.Run(context.Background(), RunOptions{
		Args: []string{"-i", filepath.Join(t.TempDir(), "missing.mp4"), "-f", "null", "-"},
	})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.ExitCode() == 0 {
		t.Error("expected non-zero exit code")
	}
	if len(exitErr.Output) == 0 {
		t.Error("expected captured stderr lines")
	}
}

func TestNormalizeAudioRejectsInPlace(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}
	if err := e.NormalizeAudio(context.Background(), "a.mp3", "a.mp3", NarrationLoudness); err == nil {
		t.Error("expected in-place normalization to fail")
	}
}

func TestFilterBuilder(t *testing.T) {
	fb := NewFilterBuilder()
	filter := fb.Crop(405, 720, 437, 0).Scale(576, 1024).SetSAR().FPS(30).Build()

	expected := "crop=405:720:437:0,scale=576:1024,setsar=1,fps=30"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}
}

func TestFilterBuilderEmpty(t *testing.T) {
	fb := NewFilterBuilder()
	if filter := fb.Build(); filter != "" {
		t.Errorf("expected empty string, got %q", filter)
	}
	if filter := fb.Scale(0, 10).Trim(0).Delay(0).Build(); filter != "" {
		t.Errorf("expected invalid arguments to be skipped, got %q", filter)
	}
}

func TestFilterBuilderTiming(t *testing.T) {
	filter := NewFilterBuilder().
		Trim(6500 * time.Millisecond).
		ShiftPTS(0).
		HoldLastFrame(2 * time.Second).
		ShiftPTS(5500 * time.Millisecond).
		Build()

	expected := "trim=duration=6.500,setpts=PTS-STARTPTS,tpad=stop_mode=clone:stop_duration=2.000,setpts=PTS-STARTPTS+5.500/TB"
	if filter != expected {
		t.Errorf("expected %q, got %q", expected, filter)
	}

	audio := NewFilterBuilder().AudioFormat(44100).ATrim(3 * time.Second).Delay(5500 * time.Millisecond).Volume(0.3).Build()
	expectedAudio := "aformat=sample_fmts=fltp:sample_rates=44100:channel_layouts=stereo,atrim=duration=3.000,adelay=delays=5500:all=1,volume=0.3"
	if audio != expectedAudio {
		t.Errorf("expected %q, got %q", expectedAudio, audio)
	}

	if got := NewFilterBuilder().Volume(0.333).Build(); got != "volume=0.333" {
		t.Errorf("volume keeps configured precision, got %q", got)
	}
	if got := NewFilterBuilder().ATrim(0).Build(); got != "" {
		t.Errorf("zero atrim should be skipped, got %q", got)
	}
}

func TestGraph(t *testing.T) {
	g := NewGraph().
		Chain([]string{"0:v"}, "scale=576:1024", "bg").
		Chain([]string{"bg", "v1"}, Overlay(2*time.Second, 5500*time.Millisecond), "o1").
		Chain([]string{"o1"}, "", "vout")

	want := "[0:v]scale=576:1024[bg];" +
		"[bg][v1]overlay=x=(W-w)/2:y=(H-h)/2:eof_action=pass:enable='between(t,2.000,5.500)'[o1];" +
		"[o1]null[vout]"
	if g.String() != want {
		t.Errorf("got %q\nwant %q", g.String(), want)
	}
	if g.Len() != 3 {
		t.Errorf("expected 3 chains, got %d", g.Len())
	}
}

func TestAMix(t *testing.T) {
	if got := AMix(3, ""); got != "amix=inputs=3:duration=longest:dropout_transition=0:normalize=0" {
		t.Errorf("got %q", got)
	}
	if got := AMix(2, "first"); !strings.Contains(got, "duration=first") {
		t.Errorf("got %q", got)
	}
}

func TestBuildEncodeArgs(t *testing.T) {
	args, err := BuildEncodeArgs(EncodeOptions{
		Inputs: []Input{
			{Path: "bg.mp4", Seek: 12500 * time.Millisecond, Duration: 6500 * time.Millisecond},
			{Path: "still.png", Loop: true, Duration: 2 * time.Second},
			{Path: "anim.gif", Args: []string{"-ignore_loop", "1"}},
		},
		FilterComplex: "[0:v]null[v]",
		Maps:          []string{"[v]", "[a]"},
		Output:        "out.mp4",
		Duration:      6500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("BuildEncodeArgs: %v", err)
	}

	want := []string{
		"-ss", "12.500", "-t", "6.500", "-i", "bg.mp4",
		"-loop", "1", "-t", "2.000", "-i", "still.png",
		"-ignore_loop", "1", "-i", "anim.gif",
		"-filter_complex", "[0:v]null[v]",
		"-map", "[v]", "-map", "[a]",
		"-c:v", "libx264", "-preset", "medium", "-crf", "23", "-pix_fmt", "yuv420p", "-r", "30",
		"-c:a", "aac", "-b:a", "192k",
		"-t", "6.500", "-movflags", "+faststart",
		"out.mp4",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args mismatch\n got: %v\nwant: %v", args, want)
	}
}

func TestBuildEncodeArgsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts EncodeOptions
	}{
		{"no inputs", EncodeOptions{Output: "out.mp4"}},
		{"empty input path", EncodeOptions{Inputs: []Input{{}}, Output: "out.mp4"}},
		{"negative seek", EncodeOptions{Inputs: []Input{{Path: "a", Seek: -time.Second}}, Output: "out.mp4"}},
		{"no output", EncodeOptions{Inputs: []Input{{Path: "a"}}}},
		{"bad crf", EncodeOptions{Inputs: []Input{{Path: "a"}}, Output: "o", CRF: 60}},
		{"negative fps", EncodeOptions{Inputs: []Input{{Path: "a"}}, Output: "o", FPS: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildEncodeArgs(tt.opts); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseProgressLine(t *testing.T) {
	block := []string{
		"frame=120",
		"fps=59.8",
		"bitrate= 812.3kbits/s",
		"out_time_us=4000000",
		"out_time=00:00:04.000000",
		"speed=1.99x",
	}
	p := &Progress{}
	for _, line := range block {
		if parseProgressLine(line, p) {
			t.Fatalf("block ended early at %q", line)
		}
	}
	if !parseProgressLine("progress=continue", p) {
		t.Fatal("expected progress= to end the block")
	}
	if p.Frame != 120 || p.OutTime != 4*time.Second || p.Speed != "1.99x" || p.Bitrate != "812.3kbits/s" {
		t.Errorf("unexpected progress: %+v", p)
	}

	p = &Progress{}
	parseProgressLine("out_time_us=N/A", p)
	if p.OutTime != 0 {
		t.Errorf("expected N/A to be ignored, got %v", p.OutTime)
	}
}

func TestStreamProgress(t *testing.T) {
	input := "frame=1\nout_time_us=33333\nprogress=continue\nframe=2\nout_time_us=66666\nprogress=end\n"
	var got []int
	streamProgress(strings.NewReader(input), func(p *Progress) { got = append(got, p.Frame) })
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("got %v", got)
	}
}

func TestParseProbeOutput(t *testing.T) {
	raw := `{
		"streams": [
			{"codec_type": "audio", "codec_name": "mp3", "bit_rate": "128000", "duration": "3.500000"},
			{"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "30/1"}
		],
		"format": {"format_name": "mov,mp4", "duration": "", "bit_rate": "900000"}
	}`
	info, err := parseProbeOutput([]byte(raw))
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if info.Duration != 3500*time.Millisecond {
		t.Errorf("expected stream duration fallback of 3.5s, got %v", info.Duration)
	}
	if info.Width != 1280 || info.Height != 720 || info.FPS != 30 {
		t.Errorf("unexpected video info: %+v", info)
	}
	if info.AudioBitrate != 128000 || info.Bitrate != 900000 {
		t.Errorf("unexpected bitrates: %+v", info)
	}

	if _, err := parseProbeOutput([]byte(`{"streams": [], "format": {}}`)); err == nil {
		t.Error("expected error for output with no streams")
	}
	if _, err := parseProbeOutput([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed output")
	}
}

func TestLineTail(t *testing.T) {
	tail := newLineTail(2)
	for _, l := range []string{"a", "", "b", "c"} {
		tail.add(l)
	}
	if got := tail.lines(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("got %v", got)
	}
}
