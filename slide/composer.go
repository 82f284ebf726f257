// Package slide renders the 1920×1080 split-layout slide: a dark text panel on
// the left and the background image cover-cropped into the right 60%.
package slide

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"slidestudio/config"
)

var errNoBackground = errors.New("slide: background image is empty")

// Composer renders slides with fonts from a FontSource.
type Composer struct {
	fonts FontSource
}

// NewComposer creates a Composer.
func NewComposer(fonts FontSource) *Composer {
	return &Composer{fonts: fonts}
}

// Compose renders title and bullets over bg. The result is always
// config.CanvasWidth × config.CanvasHeight.
func (c *Composer) Compose(bg image.Image, title string, bullets []string) (*image.RGBA, error) {
	if bg == nil || bg.Bounds().Empty() {
		return nil, errNoBackground
	}

	canvas := image.NewRGBA(image.Rect(0, 0, config.CanvasWidth, config.CanvasHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(BackgroundColor), image.Point{}, draw.Src)

	panel := CoverCrop(bg, PanelWidth, config.CanvasHeight)
	draw.Draw(canvas, image.Rect(config.CanvasWidth-PanelWidth, 0, config.CanvasWidth, config.CanvasHeight), panel, image.Point{}, draw.Src)

	layout := PlanLayout(title, bullets)
	if layout.Truncated() {
		log.Printf("⚠️  [slide] %q: %d line(s) dropped, text exceeds panel height", title, layout.Dropped)
	}

	if !layout.Separator.Empty() {
		draw.Draw(canvas, layout.Separator, image.NewUniform(AccentColor), image.Point{}, draw.Src)
	}

	titleFace := c.fonts.Face(TitleSize)
	defer titleFace.Close()
	bodyFace := c.fonts.Face(BodySize)
	defer bodyFace.Close()

	for _, line := range layout.Lines {
		face := bodyFace
		if line.Kind == TitleLine {
			face = titleFace
		}
		drawLine(canvas, face, line)
	}
	return canvas, nil
}

// drawLine draws line with its top edge at line.Y.
func drawLine(dst draw.Image, face font.Face, line TextLine) {
	ascent := face.Metrics().Ascent.Ceil()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(line.Color()),
		Face: face,
		Dot:  fixed.P(line.X, line.Y+ascent),
	}
	d.DrawString(line.Text)
}

// CoverCrop scales src to fill a w×h box without distortion, cropping the
// overflowing axis symmetrically. A source wider than the box loses width,
// a narrower one loses height.
func CoverCrop(src image.Image, w, h int) *image.RGBA {
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	srcRatio := sw / sh
	targetRatio := float64(w) / float64(h)

	var crop image.Rectangle
	if srcRatio > targetRatio {
		// scale by height, keep the centered w/scale columns
		cw := sw * targetRatio / srcRatio
		x0 := sb.Min.X + int(math.Round((sw-cw)/2))
		crop = image.Rect(x0, sb.Min.Y, x0+max(1, int(math.Round(cw))), sb.Max.Y)
	} else {
		// scale by width, keep the centered h/scale rows
		ch := sh * srcRatio / targetRatio
		y0 := sb.Min.Y + int(math.Round((sh-ch)/2))
		crop = image.Rect(sb.Min.X, y0, sb.Max.X, y0+max(1, int(math.Round(ch))))
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop.Intersect(sb), xdraw.Src, nil)
	return dst
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
