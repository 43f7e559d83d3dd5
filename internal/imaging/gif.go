package imaging

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"github.com/kikiluvv/threadshorts/pkg/util"
)

// defaultDelay is used for frames without a delay, in 100ths of a second
const defaultDelay = 10

// AnimatedCard places text under every frame of an animated header GIF and
// writes the result to output. Frames are resized to the card width; timing and
// loop count are preserved.
func (r *Renderer) AnimatedCard(headerGIF, text, output string) error {
	f, err := os.Open(headerGIF)
	if err != nil {
		return fmt.Errorf("failed to open header gif: %w", err)
	}
	src, err := gif.DecodeAll(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode header gif: %w", err)
	}
	if len(src.Image) == 0 {
		return fmt.Errorf("header gif %s has no frames", headerGIF)
	}

	body := r.text(r.bold, text)
	frames := Coalesce(src)

	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(frames)),
		Delay:     make([]int, 0, len(frames)),
		LoopCount: src.LoopCount,
	}

	for i, frame := range frames {
		header := resize.Resize(uint(r.width), 0, frame, resize.Lanczos3)
		card := VStack(header, body)

		bounds := card.Bounds()
		paletted := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, bounds, card, image.Point{})

		delay := defaultDelay
		if i < len(src.Delay) && src.Delay[i] > 0 {
			delay = src.Delay[i]
		}
		out.Image = append(out.Image, paletted)
		out.Delay = append(out.Delay, delay)
	}
	out.Config = image.Config{
		Width:  out.Image[0].Bounds().Dx(),
		Height: out.Image[0].Bounds().Dy(),
	}

	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return err
	}
	w, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := gif.EncodeAll(w, out); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode gif: %w", err)
	}

	r.logger.Debug().
		Str("path", output).
		Int("frames", len(out.Image)).
		Msg("rendered animated card")
	return w.Close()
}

// Coalesce expands the partial frames of an animated GIF into full frames
func Coalesce(g *gif.GIF) []*image.RGBA {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]*image.RGBA, 0, len(g.Image))
	for i, frame := range g.Image {
		var restore *image.RGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			restore = image.NewRGBA(bounds)
			draw.Draw(restore, bounds, canvas, bounds.Min, draw.Src)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		full := image.NewRGBA(bounds)
		draw.Draw(full, bounds, canvas, bounds.Min, draw.Src)
		frames = append(frames, full)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
	}
	return frames
}
