package imagesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Solid(w, h, c)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type stubProvider struct {
	name   string
	origin Origin
	img    image.Image
	err    error
	calls  int
}

func (s *stubProvider) Name() string   { return s.name }
func (s *stubProvider) Origin() Origin { return s.origin }
func (s *stubProvider) Resolve(ctx context.Context, query string) (image.Image, error) {
	s.calls++
	return s.img, s.err
}

func TestFetchShortCircuitsOnFirstSuccess(t *testing.T) {
	first := &stubProvider{name: "a", origin: OriginPrimary, img: Solid(4, 4, color.White)}
	second := &stubProvider{name: "b", origin: OriginPlaceholder, img: Solid(4, 4, color.Black)}

	got := New(first, second).Fetch(context.Background(), "q")
	if got.Origin != OriginPrimary || got.Provider != "a" {
		t.Fatalf("got origin %s provider %s; want primary a", got.Origin, got.Provider)
	}
	if second.calls != 0 {
		t.Fatalf("second provider called %d times; want 0", second.calls)
	}
}

func TestFetchNeverFails(t *testing.T) {
	cases := []struct {
		name      string
		providers []Provider
		want      Origin
	}{
		{"no providers", nil, OriginSolid},
		{"all error", []Provider{
			&stubProvider{name: "a", origin: OriginPrimary, err: errors.New("boom")},
			&stubProvider{name: "b", origin: OriginPlaceholder, err: errors.New("boom")},
		}, OriginSolid},
		{"nil image without error", []Provider{
			&stubProvider{name: "a", origin: OriginPrimary},
		}, OriginSolid},
		{"second tier", []Provider{
			&stubProvider{name: "a", origin: OriginPrimary, err: errNoPhotos},
			&stubProvider{name: "b", origin: OriginPlaceholder, img: Solid(8, 8, color.White)},
		}, OriginPlaceholder},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := New(c.providers...).Fetch(context.Background(), "anything")
			if got.Image == nil {
				t.Fatal("Fetch returned nil image")
			}
			if got.Origin != c.want {
				t.Fatalf("origin = %s; want %s", got.Origin, c.want)
			}
			if got.Origin == OriginSolid {
				b := got.Image.Bounds()
				if b.Dx() != 1920 || b.Dy() != 1080 {
					t.Fatalf("solid fallback is %dx%d; want 1920x1080", b.Dx(), b.Dy())
				}
				r, g, bl, _ := got.Image.At(10, 10).RGBA()
				if r>>8 != 50 || g>>8 != 50 || bl>>8 != 50 {
					t.Fatalf("solid fallback color = %d,%d,%d; want 50,50,50", r>>8, g>>8, bl>>8)
				}
			}
		})
	}
}

func TestPexelsResolve(t *testing.T) {
	photo := pngBytes(t, 32, 18, color.RGBA{R: 200, A: 255})

	var gotAuth, gotQuery, gotPerPage, gotOrientation string
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		gotPerPage = r.URL.Query().Get("per_page")
		gotOrientation = r.URL.Query().Get("orientation")
		fmt.Fprintf(w, `{"photos":[{"id":1,"src":{"large2x":"%s/photo.png"}}]}`, srv.URL)
	})
	mux.HandleFunc("/photo.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(photo)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := NewPexels("secret", srv.Client())
	p.SearchURL = srv.URL + "/v1/search"

	img, err := p.Resolve(context.Background(), "High quality, modern office")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Fatalf("image width = %d; want 32", img.Bounds().Dx())
	}
	if gotAuth != "secret" {
		t.Fatalf("Authorization = %q; want secret", gotAuth)
	}
	if gotQuery != "High quality, modern office" {
		t.Fatalf("query = %q; want raw query", gotQuery)
	}
	if gotPerPage != "1" || gotOrientation != "landscape" {
		t.Fatalf("per_page=%q orientation=%q; want 1 landscape", gotPerPage, gotOrientation)
	}
}

func TestPexelsFailuresFallThroughToPicsum(t *testing.T) {
	placeholder := pngBytes(t, 64, 36, color.RGBA{B: 200, A: 255})

	cases := []struct {
		name   string
		search http.HandlerFunc
	}{
		{"empty result", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"photos":[]}`)) }},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`not json`)) }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var seedPath atomic.Value
			mux := http.NewServeMux()
			mux.HandleFunc("/v1/search", c.search)
			mux.HandleFunc("/seed/", func(w http.ResponseWriter, r *http.Request) {
				seedPath.Store(r.URL.Path)
				w.Write(placeholder)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			pexels := NewPexels("k", srv.Client())
			pexels.SearchURL = srv.URL + "/v1/search"
			picsum := NewPicsum(srv.Client())
			picsum.BaseURL = srv.URL
			picsum.Jitter = func() int { return 7 }

			got := New(pexels, picsum).Fetch(context.Background(), "abc")
			if got.Origin != OriginPlaceholder {
				t.Fatalf("origin = %s; want %s", got.Origin, OriginPlaceholder)
			}
			if p, _ := seedPath.Load().(string); p != "/seed/10/1920/1080" {
				t.Fatalf("placeholder path = %q; want /seed/10/1920/1080", p)
			}
		})
	}
}

func TestPlaceholderFailureEndsInSolid(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"undecodable", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("definitely not an image")) }},
		{"slow", func(w http.ResponseWriter, r *http.Request) { time.Sleep(300 * time.Millisecond) }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(c.handler)
			defer srv.Close()

			picsum := NewPicsum(srv.Client())
			picsum.BaseURL = srv.URL
			picsum.Timeout = 50 * time.Millisecond

			got := New(picsum).Fetch(context.Background(), "q")
			if got.Origin != OriginSolid {
				t.Fatalf("origin = %s; want %s", got.Origin, OriginSolid)
			}
		})
	}
}

func TestPicsumSeedCountsCharacters(t *testing.T) {
	p := NewPicsum(http.DefaultClient)
	p.Jitter = func() int { return 0 }
	if got := p.Seed("会議室"); got != 3 {
		t.Fatalf("Seed = %d; want 3", got)
	}
	p.Jitter = func() int { return 1000 }
	if got := p.Seed("ai"); got != 1002 {
		t.Fatalf("Seed = %d; want 1002", got)
	}
}

func TestCatalogMatch(t *testing.T) {
	c := NewCatalog(http.DefaultClient)
	cases := []struct {
		query string
		want  string
	}{
		{"Futuristic AI robot", DefaultCatalog[0].URL},
		{"construction site at dusk", DefaultCatalog[4].URL},
		{"a quiet forest", DefaultCatalogURL},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			if got := c.Match(tc.query); got != tc.want {
				t.Fatalf("Match(%q) = %q; want %q", tc.query, got, tc.want)
			}
		})
	}
}
