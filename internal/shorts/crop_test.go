package shorts

import (
	"errors"
	"testing"
)

func TestResolveCrop(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		want       Crop
	}{
		{
			name: "landscape keeps full height",
			srcW: 1920, srcH: 1080,
			want: Crop{X1: 656, Y1: 0, X2: 1264, Y2: 1080, Width: 576, Height: 1024},
		},
		{
			name: "tall portrait keeps full width",
			srcW: 1080, srcH: 2400,
			want: Crop{X1: 0, Y1: 240, X2: 1080, Y2: 2160, Width: 576, Height: 1024},
		},
		{
			name: "exact target aspect is untouched",
			srcW: 1080, srcH: 1920,
			want: Crop{X1: 0, Y1: 0, X2: 1080, Y2: 1920, Width: 576, Height: 1024},
		},
		{
			name: "one column wider than the target aspect",
			srcW: 577, srcH: 1024,
			want: Crop{X1: 0, Y1: 0, X2: 576, Y2: 1024, Width: 576, Height: 1024},
		},
		{
			name: "one row taller than the target aspect",
			srcW: 576, srcH: 1025,
			want: Crop{X1: 0, Y1: 0, X2: 576, Y2: 1024, Width: 576, Height: 1024},
		},
		{
			name: "square",
			srcW: 1000, srcH: 1000,
			want: Crop{X1: 218, Y1: 0, X2: 781, Y2: 1000, Width: 576, Height: 1024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCrop(tt.srcW, tt.srcH, TargetWidth, TargetHeight)
			if err != nil {
				t.Fatalf("ResolveCrop: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveCropIsCentered(t *testing.T) {
	for _, size := range [][2]int{{1920, 1080}, {1280, 720}, {720, 1280}, {640, 1600}, {1001, 777}} {
		c, err := ResolveCrop(size[0], size[1], TargetWidth, TargetHeight)
		if err != nil {
			t.Fatal(err)
		}
		left, right := c.X1, size[0]-c.X2
		top, bottom := c.Y1, size[1]-c.Y2
		if d := right - left; d < 0 || d > 1 {
			t.Errorf("%v: horizontal margins %d/%d not centered", size, left, right)
		}
		if d := bottom - top; d < 0 || d > 1 {
			t.Errorf("%v: vertical margins %d/%d not centered", size, top, bottom)
		}
		if c.CropWidth() <= 0 || c.CropHeight() <= 0 {
			t.Errorf("%v: empty rectangle %+v", size, c)
		}
	}
}

func TestResolveCropIdempotent(t *testing.T) {
	// sources already at the target aspect are never cropped
	for k := 1; k <= 240; k++ {
		c, err := ResolveCrop(9*k, 16*k, TargetWidth, TargetHeight)
		if err != nil {
			t.Fatal(err)
		}
		if !c.IsFullFrame(9*k, 16*k) {
			t.Fatalf("%dx%d: got %+v, want full frame", 9*k, 16*k, c)
		}
	}

	// re-cropping a crop moves at most one pixel of rounding
	for w := 200; w <= 2200; w += 37 {
		for h := 200; h <= 2200; h += 41 {
			first, err := ResolveCrop(w, h, TargetWidth, TargetHeight)
			if err != nil {
				t.Fatal(err)
			}
			cw, ch := first.CropWidth(), first.CropHeight()
			second, err := ResolveCrop(cw, ch, TargetWidth, TargetHeight)
			if err != nil {
				t.Fatal(err)
			}
			if cw-second.CropWidth() > 1 || ch-second.CropHeight() > 1 {
				t.Fatalf("%dx%d: re-cropping %dx%d gave %+v", w, h, cw, ch, second)
			}
		}
	}
}

func TestResolveCropInvalidDimensions(t *testing.T) {
	for _, dims := range [][4]int{
		{0, 1080, 576, 1024},
		{1920, -1, 576, 1024},
		{1920, 1080, 0, 1024},
		{1920, 1080, 576, 0},
	} {
		if _, err := ResolveCrop(dims[0], dims[1], dims[2], dims[3]); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("%v: expected ErrInvalidDimensions, got %v", dims, err)
		}
	}
}

func TestVisualSize(t *testing.T) {
	tests := []struct {
		srcW, srcH int
		wantW      int
		wantH      int
	}{
		{800, 400, 403, 200},
		{576, 300, 403, 208},
		{1000, 1000, 403, 402},
		{2000, 2, 403, 2},
	}
	for _, tt := range tests {
		w, h, err := VisualSize(tt.srcW, tt.srcH, TargetWidth, VisualWidthRatio)
		if err != nil {
			t.Fatal(err)
		}
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("VisualSize(%d, %d) = %dx%d, want %dx%d", tt.srcW, tt.srcH, w, h, tt.wantW, tt.wantH)
		}
	}

	if _, _, err := VisualSize(0, 10, TargetWidth, VisualWidthRatio); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}
