package slide

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// FontSource yields a face able to render text at the requested pixel size.
type FontSource interface {
	Face(size float64) font.Face
}

// FontResolver probes an ordered list of font files and caches the first one
// that parses. When none load it falls back to the embedded Go Bold font.
type FontResolver struct {
	candidates []string
	dirs       []string

	once   sync.Once
	font   *opentype.Font
	source string
}

// NewFontResolver creates a resolver over candidates. Bare file names are
// looked up in the platform font directories.
func NewFontResolver(candidates []string) *FontResolver {
	return &FontResolver{
		candidates: candidates,
		dirs:       platformFontDirs(),
	}
}

// Source returns the path of the loaded font, or "builtin".
func (r *FontResolver) Source() string {
	r.load()
	return r.source
}

// Face returns a new face at size pixels. It never returns nil.
// Faces are not safe for concurrent use, so callers take one per render.
func (r *FontResolver) Face(size float64) font.Face {
	r.load()

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		// the builtin font always yields a face
		log.Printf("⚠️  font %s unusable at %.0fpx: %v", r.source, size, err)
		face, _ = opentype.NewFace(builtinFont(), &opentype.FaceOptions{Size: size, DPI: 72})
	}
	return face
}

func (r *FontResolver) load() {
	r.once.Do(func() {
		for _, candidate := range r.candidates {
			for _, path := range r.expand(candidate) {
				f, err := loadFontFile(path)
				if err != nil {
					continue
				}
				r.font, r.source = f, path
				log.Printf("[fonts] using %s", path)
				return
			}
		}
		log.Printf("⚠️  [fonts] no candidate font loaded, using builtin")
		r.font, r.source = builtinFont(), "builtin"
	})
}

func (r *FontResolver) expand(candidate string) []string {
	if filepath.IsAbs(candidate) || strings.ContainsRune(candidate, os.PathSeparator) {
		return []string{candidate}
	}
	paths := []string{candidate}
	for _, dir := range r.dirs {
		paths = append(paths, filepath.Join(dir, candidate))
	}
	return paths
}

// loadFontFile parses a .ttf/.otf file or the first face of a .ttc collection.
func loadFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte("ttcf")) {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		if coll.NumFonts() == 0 {
			return nil, fmt.Errorf("%s: empty font collection", path)
		}
		return coll.Font(0)
	}
	return opentype.Parse(data)
}

var (
	builtinOnce sync.Once
	builtin     *opentype.Font
)

func builtinFont() *opentype.Font {
	builtinOnce.Do(func() {
		f, err := opentype.Parse(gobold.TTF)
		if err != nil {
			panic("slide: embedded Go font failed to parse: " + err.Error())
		}
		builtin = f
	})
	return builtin
}

func platformFontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	case "darwin":
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(home, "Library", "Fonts")}
	default:
		return []string{"/usr/share/fonts", "/usr/local/share/fonts", filepath.Join(home, ".fonts")}
	}
}
