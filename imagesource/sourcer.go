// Package imagesource resolves a text query to a background bitmap through an
// ordered chain of providers that always ends in a solid-color image.
package imagesource

import (
	"context"
	"image"
	"image/color"
	"log"
	"net/http"

	"slidestudio/config"
)

// Origin tags which tier of the chain produced an image.
type Origin string

const (
	OriginPrimary     Origin = "primary"
	OriginPlaceholder Origin = "fallback-placeholder"
	OriginSolid       Origin = "fallback-solid"
)

// FallbackGray is the terminal fallback color.
var FallbackGray = color.RGBA{R: 50, G: 50, B: 50, A: 255}

// SourcedImage is a decoded bitmap plus the tier that produced it.
type SourcedImage struct {
	Image    image.Image
	Origin   Origin
	Provider string
}

// Provider is one strategy of the fallback chain.
// Resolve returns an error for any tier failure; it must not panic.
type Provider interface {
	Name() string
	Origin() Origin
	Resolve(ctx context.Context, query string) (image.Image, error)
}

// Sourcer tries providers in order and falls back to a solid image.
type Sourcer struct {
	providers []Provider
	width     int
	height    int
	fill      color.Color
}

// New creates a Sourcer over the given providers, tried in order.
func New(providers ...Provider) *Sourcer {
	return &Sourcer{
		providers: providers,
		width:     config.CanvasWidth,
		height:    config.CanvasHeight,
		fill:      FallbackGray,
	}
}

// NewDefault builds the standard chain: Pexels when a key is configured,
// otherwise the keyword catalog, then Picsum.
func NewDefault(pexelsKey string, client *http.Client) *Sourcer {
	if client == nil {
		client = &http.Client{}
	}
	var primary Provider
	if pexelsKey != "" {
		primary = NewPexels(pexelsKey, client)
	} else {
		log.Println("⚠️  PEXELS_API_KEY not set, using keyword catalog for backgrounds")
		primary = NewCatalog(client)
	}
	return New(primary, NewPicsum(client))
}

// Fetch resolves query to an image. It never fails.
func (s *Sourcer) Fetch(ctx context.Context, query string) SourcedImage {
	for _, p := range s.providers {
		img, err := p.Resolve(ctx, query)
		if err == nil && img != nil && !img.Bounds().Empty() {
			log.Printf("[images] %q resolved by %s (%s)", query, p.Name(), p.Origin())
			return SourcedImage{Image: img, Origin: p.Origin(), Provider: p.Name()}
		}
		if err == nil {
			err = errEmptyImage
		}
		log.Printf("[images] %s failed for %q: %v", p.Name(), query, err)
	}

	log.Printf("[images] %q using solid fallback", query)
	return SourcedImage{
		Image:    Solid(s.width, s.height, s.fill),
		Origin:   OriginSolid,
		Provider: "solid",
	}
}

// Solid returns a width×height image filled with c.
func Solid(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	r, g, b, a := c.RGBA()
	px := []uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], px)
	}
	return img
}
