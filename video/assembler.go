// Package video assembles slide images and narration tracks into one MP4.
package video

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"slidestudio/config"
)

// ErrNoClips is returned when no unit had usable backing files.
var ErrNoClips = errors.New("video: no clips to assemble")

// AssemblyUnit pairs a composed slide image with its narration audio.
type AssemblyUnit struct {
	SlideNumber int
	ImagePath   string
	AudioPath   string
}

// Clip is a unit with its measured audio duration in seconds.
type Clip struct {
	AssemblyUnit
	Duration float64
}

// Runner executes a compiled ffmpeg graph.
type Runner func(stream *ffmpeg.Stream) error

// Assembler builds the final video with ffmpeg.
type Assembler struct {
	prober DurationProber
	run    Runner
}

// NewAssembler creates an assembler that measures audio with ffprobe and
// encodes with the ffmpeg binary on PATH.
func NewAssembler() *Assembler {
	return &Assembler{
		prober: FFProbe{},
		run:    func(s *ffmpeg.Stream) error { return s.Run() },
	}
}

// WithProber replaces the duration prober.
func (a *Assembler) WithProber(p DurationProber) *Assembler {
	a.prober = p
	return a
}

// WithRunner replaces the ffmpeg runner.
func (a *Assembler) WithRunner(r Runner) *Assembler {
	a.run = r
	return a
}

// Clips returns the usable units in the given order with their durations.
// Units with missing files or unmeasurable audio are logged and skipped.
func (a *Assembler) Clips(units []AssemblyUnit) []Clip {
	clips := make([]Clip, 0, len(units))
	for _, u := range units {
		if err := checkFile(u.ImagePath); err != nil {
			log.Printf("⚠️  [video] skipping slide %d: image %v", u.SlideNumber, err)
			continue
		}
		if err := checkFile(u.AudioPath); err != nil {
			log.Printf("⚠️  [video] skipping slide %d: audio %v", u.SlideNumber, err)
			continue
		}
		d, err := a.prober.Duration(u.AudioPath)
		if err != nil || d <= 0 {
			log.Printf("⚠️  [video] skipping slide %d: cannot measure %s: %v", u.SlideNumber, u.AudioPath, err)
			continue
		}
		clips = append(clips, Clip{AssemblyUnit: u, Duration: d})
	}
	return clips
}

// Assemble encodes units, in order, into outputPath. Each clip lasts exactly
// as long as its narration and fades in over its first half second. Once
// started the encode runs to completion; on failure no output file is left.
func (a *Assembler) Assemble(units []AssemblyUnit, outputPath string) (string, error) {
	clips := a.Clips(units)
	if len(clips) == 0 {
		return "", ErrNoClips
	}

	var total float64
	for _, c := range clips {
		total += c.Duration
	}
	log.Printf("🎬 [video] assembling %d clip(s), %.2fs total -> %s", len(clips), total, outputPath)

	var stderr bytes.Buffer
	stream := BuildGraph(clips, outputPath).WithErrorOutput(&stderr)

	if err := a.run(stream); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), 500))
	}
	if err := checkFile(outputPath); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg produced no output: %w", err)
	}

	log.Printf("✅ [video] wrote %s", outputPath)
	return outputPath, nil
}

// BuildGraph compiles the filter graph: every image is looped for its clip's
// duration, fitted onto the canvas and faded in, every audio track is
// normalized, and both sets are concatenated in order.
func BuildGraph(clips []Clip, outputPath string) *ffmpeg.Stream {
	videos := make([]*ffmpeg.Stream, 0, len(clips))
	audios := make([]*ffmpeg.Stream, 0, len(clips))

	w, h := fmt.Sprint(config.CanvasWidth), fmt.Sprint(config.CanvasHeight)
	for _, c := range clips {
		v := ffmpeg.Input(c.ImagePath, ffmpeg.KwArgs{
			"loop":      1,
			"framerate": config.VideoFPS,
			"t":         fmt.Sprintf("%.3f", c.Duration),
		}).
			Filter("scale", ffmpeg.Args{w, h}, ffmpeg.KwArgs{"force_original_aspect_ratio": "decrease"}).
			Filter("pad", ffmpeg.Args{w, h, "(ow-iw)/2", "(oh-ih)/2"}).
			Filter("setsar", ffmpeg.Args{"1"}).
			Filter("fade", ffmpeg.Args{}, ffmpeg.KwArgs{"t": "in", "st": 0, "d": config.FadeInSeconds}).
			Filter("fps", ffmpeg.Args{fmt.Sprint(config.VideoFPS)}).
			Filter("format", ffmpeg.Args{config.PixelFormat})
		videos = append(videos, v)

		a := ffmpeg.Input(c.AudioPath).Audio().
			Filter("aresample", ffmpeg.Args{fmt.Sprint(config.AudioSampleRate)}).
			Filter("aformat", ffmpeg.Args{}, ffmpeg.KwArgs{"channel_layouts": "stereo"})
		audios = append(audios, a)
	}

	video := ffmpeg.Filter(videos, "concat", ffmpeg.Args{}, ffmpeg.KwArgs{"n": len(videos), "v": 1, "a": 0})
	audio := ffmpeg.Filter(audios, "concat", ffmpeg.Args{}, ffmpeg.KwArgs{"n": len(audios), "v": 0, "a": 1})

	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, outputPath, ffmpeg.KwArgs{
		"c:v":      config.VideoCodec,
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"preset":   config.VideoPreset,
		"r":        config.VideoFPS,
		"threads":  config.EncodeThreads,
		"pix_fmt":  config.PixelFormat,
		"movflags": "+faststart",
	}).OverWriteOutput()
}

func checkFile(path string) error {
	if path == "" {
		return errors.New("path not set")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
