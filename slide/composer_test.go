package slide

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

var (
	red     = color.RGBA{R: 255, A: 255}
	blue    = color.RGBA{B: 255, A: 255}
	yellow  = color.RGBA{R: 255, G: 255, A: 255}
	magenta = color.RGBA{R: 255, B: 255, A: 255}
	black   = color.RGBA{A: 255}
)

// quadrants returns a w×h image with four colored quadrants inside a black border.
func quadrants(w, h, border int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.RGBA
			switch {
			case x < border || y < border || x >= w-border || y >= h-border:
				c = black
			case x < w/2 && y < h/2:
				c = red
			case y < h/2:
				c = blue
			case x < w/2:
				c = yellow
			default:
				c = magenta
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	d := func(x, y uint32) bool {
		x, y = x>>8, y>>8
		if x > y {
			return x-y <= 8
		}
		return y-x <= 8
	}
	return d(ar, br) && d(ag, bg) && d(ab, bb)
}

func newTestComposer() *Composer {
	return NewComposer(NewFontResolver([]string{"/nonexistent/font.ttf"}))
}

func TestComposeAlwaysFullCanvas(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"16:9", 320, 180},
		{"4:3", 400, 300},
		{"9:16", 180, 320},
		{"1:1", 300, 300},
		{"tiny", 1, 1},
	}

	c := newTestComposer()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := c.Compose(quadrants(tc.w, tc.h, 0), "Hi", []string{"one"})
			if err != nil {
				t.Fatalf("Compose error: %v", err)
			}
			if b := out.Bounds(); b.Dx() != 1920 || b.Dy() != 1080 {
				t.Fatalf("output is %dx%d; want 1920x1080", b.Dx(), b.Dy())
			}
			if got := out.At(10, 1070); !near(got, BackgroundColor) {
				t.Fatalf("text panel pixel = %v; want %v", got, BackgroundColor)
			}
			// separator row for a one-line title: 150 + 90 + 30
			if got := out.At(400, 270); !near(got, AccentColor) {
				t.Fatalf("separator pixel = %v; want %v", got, AccentColor)
			}
		})
	}
}

func TestComposeCropsCorrectAxis(t *testing.T) {
	px := PanelWidth
	offset := 1920 - px

	cases := []struct {
		name       string
		bg         *image.RGBA
		blackAt    image.Point // border band that must survive
		notBlackAt image.Point // border band that must be cropped away
	}{
		{
			name:       "wider background crops width",
			bg:         quadrants(4000, 1000, 50),
			blackAt:    image.Pt(offset+px/2, 3),
			notBlackAt: image.Pt(offset+3, 300),
		},
		{
			name:       "narrower background crops height",
			bg:         quadrants(1000, 4000, 50),
			blackAt:    image.Pt(offset+3, 300),
			notBlackAt: image.Pt(offset+200, 3),
		},
	}

	c := newTestComposer()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := c.Compose(tc.bg, "", nil)
			if err != nil {
				t.Fatalf("Compose error: %v", err)
			}

			if got := out.At(tc.blackAt.X, tc.blackAt.Y); !near(got, black) {
				t.Fatalf("pixel %v = %v; want preserved black border", tc.blackAt, got)
			}
			if got := out.At(tc.notBlackAt.X, tc.notBlackAt.Y); near(got, black) {
				t.Fatalf("pixel %v is black; border on the cropped axis should be gone", tc.notBlackAt)
			}

			corners := []struct {
				at   image.Point
				want color.RGBA
			}{
				{image.Pt(offset+200, 300), red},
				{image.Pt(offset+1000, 300), blue},
				{image.Pt(offset+200, 800), yellow},
				{image.Pt(offset+1000, 800), magenta},
			}
			for _, cc := range corners {
				if got := out.At(cc.at.X, cc.at.Y); !near(got, cc.want) {
					t.Fatalf("pixel %v = %v; want %v", cc.at, got, cc.want)
				}
			}
		})
	}
}

func TestComposeRejectsEmptyBackground(t *testing.T) {
	c := newTestComposer()
	if _, err := c.Compose(nil, "t", nil); err == nil {
		t.Fatal("expected error for nil background")
	}
	if _, err := c.Compose(image.NewRGBA(image.Rect(0, 0, 0, 0)), "t", nil); err == nil {
		t.Fatal("expected error for empty background")
	}
}

func TestCoverCropKeepsSize(t *testing.T) {
	for _, sz := range []image.Point{{5000, 10}, {10, 5000}, {1152, 1080}} {
		out := CoverCrop(quadrants(sz.X, sz.Y, 0), PanelWidth, 1080)
		if b := out.Bounds(); b.Dx() != PanelWidth || b.Dy() != 1080 {
			t.Fatalf("CoverCrop(%v) = %v; want %dx1080", sz, b, PanelWidth)
		}
	}
}

func TestSavePNG(t *testing.T) {
	out, err := newTestComposer().Compose(quadrants(16, 9, 0), "保存", []string{"テスト"})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "slide_1.png")
	if err := SavePNG(path, out); err != nil {
		t.Fatalf("SavePNG error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("written file is not a PNG: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Fatalf("PNG is %dx%d; want 1920x1080", cfg.Width, cfg.Height)
	}
}
