package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/kikiluvv/threadshorts/internal/content"
	"github.com/kikiluvv/threadshorts/pkg/util"
)

const (
	DefaultWidth      = 576
	DefaultFontSize   = 30
	SmallFontSize     = 18
	HeaderHeight      = 20
	sideMargin        = 10
	lineSpacing       = 2
	bottomMargin      = 8
	headerPaddingLeft = 10
)

var (
	darkBackground  = color.RGBA{0x0E, 0x11, 0x13, 0xFF}
	lightBackground = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
)

// Options configures a Renderer
type Options struct {
	Width    int
	FontPath string // empty uses the embedded Go fonts
	FontSize float64
	DarkMode bool
}

// Renderer draws the text cards shown over the background
type Renderer struct {
	logger zerolog.Logger
	width  int
	body   font.Face
	bold   font.Face
	small  font.Face
	bg     color.Color
	fg     color.Color
}

// New loads the fonts and returns a Renderer
func New(logger zerolog.Logger, opts Options) (*Renderer, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}

	regular := goregular.TTF
	bold := gobold.TTF
	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		regular, bold = data, data
	}

	r := &Renderer{
		logger: logger.With().Str("component", "imaging").Logger(),
		width:  opts.Width,
		bg:     lightBackground,
		fg:     color.Black,
	}
	if opts.DarkMode {
		r.bg, r.fg = darkBackground, color.White
	}

	var err error
	if r.body, err = newFace(regular, opts.FontSize); err != nil {
		return nil, err
	}
	if r.bold, err = newFace(bold, opts.FontSize); err != nil {
		return nil, err
	}
	if r.small, err = newFace(regular, SmallFontSize); err != nil {
		return nil, err
	}
	return r, nil
}

func newFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// Width is the card width in pixels
func (r *Renderer) Width() int {
	return r.width
}

// Text renders wrapped, centered text on a card as wide as the renderer
func (r *Renderer) Text(text string) *image.RGBA {
	return r.text(r.body, text)
}

func (r *Renderer) text(face font.Face, text string) *image.RGBA {
	lines := wrap(face, text, r.width-2*sideMargin)
	m := face.Metrics()
	lineHeight := m.Height.Ceil() + lineSpacing
	height := len(lines)*lineHeight + bottomMargin
	if height < 2 {
		height = 2
	}
	height += height % 2

	img := image.NewRGBA(image.Rect(0, 0, r.width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(r.fg), Face: face}
	for i, line := range lines {
		w := d.MeasureString(line).Ceil()
		x := (r.width - w) / 2
		y := i*lineHeight + m.Ascent.Ceil()
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}
	return img
}

// Header renders the "u/<author>" strip shown above a comment
func (r *Renderer) Header(author string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.width, HeaderHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.bg), image.Point{}, draw.Src)

	m := r.small.Metrics()
	textHeight := (m.Ascent + m.Descent).Ceil()
	y := (HeaderHeight-textHeight)/2 + m.Ascent.Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.fg),
		Face: r.small,
		Dot:  fixed.P(headerPaddingLeft, y),
	}
	d.DrawString("u/" + author)
	return img
}

// Card renders the image for one script unit: the title in bold, the first
// chunk of a comment under its author header and everything else as plain text.
func (r *Renderer) Card(u *content.Unit) *image.RGBA {
	switch {
	case u.Kind == content.KindTitle:
		return VStack(r.Header(u.Author), r.text(r.bold, u.Text))
	case u.Kind == content.KindComment && u.First():
		return VStack(r.Header(u.Author), r.Text(u.Text))
	default:
		return r.Text(u.Text)
	}
}

// RenderCard draws the card of u into dir and records the path on the unit
func (r *Renderer) RenderCard(u *content.Unit, dir string) (string, error) {
	path := filepath.Join(dir, u.ID+".png")
	if err := SavePNG(r.Card(u), path); err != nil {
		return "", err
	}
	u.Visual = path
	r.logger.Debug().Str("unit", u.ID).Str("path", path).Msg("rendered card")
	return path, nil
}

// Close releases the font faces
func (r *Renderer) Close() error {
	for _, f := range []font.Face{r.body, r.bold, r.small} {
		if f != nil {
			f.Close()
		}
	}
	return nil
}

// VStack concatenates images top to bottom, left aligned, on a canvas as wide as the widest
func VStack(imgs ...image.Image) *image.RGBA {
	width, height := 0, 0
	for _, img := range imgs {
		b := img.Bounds()
		width = max(width, b.Dx())
		height += b.Dy()
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	y := 0
	for _, img := range imgs {
		b := img.Bounds()
		draw.Draw(out, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy()
	}
	return out
}

// SavePNG writes img as a PNG
func SavePNG(img image.Image, path string) error {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// wrap breaks text into lines no wider than maxWidth. Explicit newlines are kept.
func wrap(face font.Face, text string, maxWidth int) []string {
	limit := fixed.I(maxWidth)
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.FieldsFunc(para, unicode.IsSpace)
		if len(words) == 0 {
			continue
		}

		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if font.MeasureString(face, candidate) <= limit {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			// a single word wider than the card is broken by rune
			for font.MeasureString(face, word) > limit {
				cut := fitRunes(face, word, limit)
				lines = append(lines, word[:cut])
				word = word[cut:]
			}
			line = word
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// fitRunes returns the byte length of the longest prefix of s that fits in limit, at least one rune
func fitRunes(face font.Face, s string, limit fixed.Int26_6) int {
	cut := 0
	for i := range s {
		_, size := utf8.DecodeRuneInString(s[i:])
		next := i + size
		if cut > 0 && font.MeasureString(face, s[:next]) > limit {
			break
		}
		cut = next
	}
	return cut
}
