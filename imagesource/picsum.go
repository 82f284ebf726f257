package imagesource

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rivo/uniseg"

	"slidestudio/config"
)

// PicsumBaseURL is the placeholder image service.
const PicsumBaseURL = "https://picsum.photos"

// Picsum fetches a seeded placeholder photo at the canvas size.
type Picsum struct {
	client  *http.Client
	BaseURL string
	Width   int
	Height  int
	Timeout time.Duration
	// Jitter returns the random seed offset; replaced in tests.
	Jitter func() int
}

// NewPicsum creates a Picsum provider for 1920×1080 placeholders.
func NewPicsum(client *http.Client) *Picsum {
	return &Picsum{
		client:  client,
		BaseURL: PicsumBaseURL,
		Width:   config.CanvasWidth,
		Height:  config.CanvasHeight,
		Timeout: config.PlaceholderTimeout,
		Jitter:  func() int { return rand.IntN(config.PlaceholderSeedJitter + 1) },
	}
}

func (p *Picsum) Name() string   { return "picsum" }
func (p *Picsum) Origin() Origin { return OriginPlaceholder }

// Seed varies the placeholder between slides; it carries no meaning.
func (p *Picsum) Seed(query string) int {
	return uniseg.GraphemeClusterCount(query) + p.Jitter()
}

// URL returns the placeholder URL for seed.
func (p *Picsum) URL(seed int) string {
	return fmt.Sprintf("%s/seed/%d/%d/%d", p.BaseURL, seed, p.Width, p.Height)
}

func (p *Picsum) Resolve(ctx context.Context, query string) (image.Image, error) {
	return fetchImage(ctx, p.client, p.URL(p.Seed(query)), p.Timeout, nil)
}
