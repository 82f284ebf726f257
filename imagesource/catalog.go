package imagesource

import (
	"context"
	"image"
	"net/http"
	"strings"
	"time"

	"slidestudio/config"
)

// CatalogEntry maps a keyword to a curated stock photo.
type CatalogEntry struct {
	Keyword string
	URL     string
}

// DefaultCatalog is matched in order against the lower-cased query.
var DefaultCatalog = []CatalogEntry{
	{"ai", "https://images.pexels.com/photos/8386440/pexels-photo-8386440.jpeg"},
	{"technology", "https://images.pexels.com/photos/3861969/pexels-photo-3861969.jpeg"},
	{"business", "https://images.pexels.com/photos/3183150/pexels-photo-3183150.jpeg"},
	{"meeting", "https://images.pexels.com/photos/3183150/pexels-photo-3183150.jpeg"},
	{"construction", "https://images.pexels.com/photos/1216589/pexels-photo-1216589.jpeg"},
	{"building", "https://images.pexels.com/photos/1216589/pexels-photo-1216589.jpeg"},
	{"office", "https://images.pexels.com/photos/1181244/pexels-photo-1181244.jpeg"},
	{"data", "https://images.pexels.com/photos/669615/pexels-photo-669615.jpeg"},
	{"computer", "https://images.pexels.com/photos/3861969/pexels-photo-3861969.jpeg"},
}

// DefaultCatalogURL is used when no keyword matches.
const DefaultCatalogURL = "https://images.pexels.com/photos/1181244/pexels-photo-1181244.jpeg"

// Catalog serves curated photos by keyword when no search API key is available.
type Catalog struct {
	client     *http.Client
	Entries    []CatalogEntry
	DefaultURL string
	Timeout    time.Duration
}

// NewCatalog creates a Catalog over DefaultCatalog.
func NewCatalog(client *http.Client) *Catalog {
	return &Catalog{
		client:     client,
		Entries:    DefaultCatalog,
		DefaultURL: DefaultCatalogURL,
		Timeout:    config.CatalogDownloadTimeout,
	}
}

func (c *Catalog) Name() string   { return "catalog" }
func (c *Catalog) Origin() Origin { return OriginPrimary }

// Match returns the photo URL for query.
func (c *Catalog) Match(query string) string {
	q := strings.ToLower(query)
	for _, e := range c.Entries {
		if strings.Contains(q, e.Keyword) {
			return e.URL
		}
	}
	return c.DefaultURL
}

func (c *Catalog) Resolve(ctx context.Context, query string) (image.Image, error) {
	return fetchImage(ctx, c.client, c.Match(query), c.Timeout, nil)
}
