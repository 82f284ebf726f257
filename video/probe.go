package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var errNoDuration = errors.New("no duration in ffprobe output")

// DurationProber measures the playing time of a media file in seconds.
type DurationProber interface {
	Duration(path string) (float64, error)
}

// FFProbe measures durations with ffprobe.
type FFProbe struct{}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Duration implements DurationProber.
func (FFProbe) Duration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeDuration([]byte(out))
}

// parseProbeDuration reads the container duration, falling back to the
// first audio stream's.
func parseProbeDuration(data []byte) (float64, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	candidates := []string{p.Format.Duration}
	for _, s := range p.Streams {
		if s.CodecType == "audio" {
			candidates = append(candidates, s.Duration)
		}
	}
	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		d, err := strconv.ParseFloat(c, 64)
		if err == nil && d > 0 {
			return d, nil
		}
	}
	return 0, errNoDuration
}
