package imagesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"time"

	"slidestudio/config"
)

// PexelsSearchURL is the Pexels photo search endpoint.
const PexelsSearchURL = "https://api.pexels.com/v1/search"

var errNoPhotos = errors.New("pexels returned no photos")

// Pexels searches the Pexels API for one landscape photo.
// Docs: https://www.pexels.com/api/documentation/#photos-search
type Pexels struct {
	apiKey          string
	client          *http.Client
	SearchURL       string
	SearchTimeout   time.Duration
	DownloadTimeout time.Duration
}

// NewPexels creates a Pexels provider with the default endpoint and timeouts.
func NewPexels(apiKey string, client *http.Client) *Pexels {
	return &Pexels{
		apiKey:          apiKey,
		client:          client,
		SearchURL:       PexelsSearchURL,
		SearchTimeout:   config.PexelsSearchTimeout,
		DownloadTimeout: config.PexelsDownloadTimeout,
	}
}

func (p *Pexels) Name() string   { return "pexels" }
func (p *Pexels) Origin() Origin { return OriginPrimary }

type pexelsSearchResponse struct {
	Photos []struct {
		ID  int64 `json:"id"`
		Src struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
			Large    string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// Resolve searches with the raw query and downloads the first result.
func (p *Pexels) Resolve(ctx context.Context, query string) (image.Image, error) {
	photoURL, err := p.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return fetchImage(ctx, p.client, photoURL, p.DownloadTimeout, nil)
}

func (p *Pexels) search(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.SearchTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")
	endpoint := p.SearchURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{URL: p.SearchURL, Status: resp.StatusCode}
	}

	var parsed pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("pexels search decode: %w", err)
	}
	if len(parsed.Photos) == 0 {
		return "", errNoPhotos
	}

	src := parsed.Photos[0].Src
	switch {
	case src.Large2x != "":
		return src.Large2x, nil
	case src.Large != "":
		return src.Large, nil
	case src.Original != "":
		return src.Original, nil
	}
	return "", errNoPhotos
}
