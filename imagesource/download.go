package imagesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/webp"
)

// maxImageBytes caps a single downloaded image.
const maxImageBytes = 32 << 20

var errEmptyImage = errors.New("provider returned an empty image")

// statusError is a non-200 response from an image service.
type statusError struct {
	URL    string
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// fetchImage downloads and decodes url within timeout.
func fetchImage(ctx context.Context, client *http.Client, url string, timeout time.Duration, header http.Header) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{URL: url, Status: resp.StatusCode}
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	if img.Bounds().Empty() {
		return nil, errEmptyImage
	}
	return img, nil
}
