package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("SLIDESTUDIO_CONFIG", "")
	t.Chdir(t.TempDir())

	s, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Voice != DefaultVoice {
		t.Fatalf("Voice = %q; want %q", s.Voice, DefaultVoice)
	}
	if s.Concurrency != DefaultConcurrency {
		t.Fatalf("Concurrency = %d; want %d", s.Concurrency, DefaultConcurrency)
	}
	if !reflect.DeepEqual(s.FontCandidates, DefaultFontCandidates) {
		t.Fatalf("FontCandidates = %v; want defaults", s.FontCandidates)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	body := `
voice: ja-JP-KeitaNeural
concurrency: 3
fonts:
  - /opt/fonts/a.ttf
  - /opt/fonts/b.ttc
run_ttl: 2h
s3:
  bucket: videos
  prefix: /renders/
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLIDESTUDIO_CONFIG", path)
	t.Setenv("RENDER_CONCURRENCY", "4")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "k1:9092, k2:9092,")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	cases := []struct {
		name string
		got  any
		want any
	}{
		{"voice from file", s.Voice, "ja-JP-KeitaNeural"},
		{"env beats file", s.Concurrency, 4},
		{"fonts from file", s.FontCandidates, []string{"/opt/fonts/a.ttf", "/opt/fonts/b.ttc"}},
		{"duration parsed", s.RunTTL, 2 * time.Hour},
		{"prefix normalized", s.S3.Prefix, "renders/"},
		{"brokers split", s.KafkaBrokers, []string{"k1:9092", "k2:9092"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if !reflect.DeepEqual(c.got, c.want) {
				t.Fatalf("got %v; want %v", c.got, c.want)
			}
		})
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	t.Setenv("SLIDESTUDIO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for explicitly configured missing file")
	}
}

func TestFontsEnvOverride(t *testing.T) {
	t.Setenv("SLIDESTUDIO_CONFIG", "")
	t.Chdir(t.TempDir())
	t.Setenv("SLIDESTUDIO_FONTS", "one.ttf,two.ttc")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if want := []string{"one.ttf", "two.ttc"}; !reflect.DeepEqual(s.FontCandidates, want) {
		t.Fatalf("FontCandidates = %v; want %v", s.FontCandidates, want)
	}
}
