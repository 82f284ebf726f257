package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PresentationPlan is the structured input to the render pipeline.
// It is treated as immutable once handed to a run.
type PresentationPlan struct {
	Theme  string      `json:"theme"`
	Slides []SlideSpec `json:"slides"`
}

// SlideSpec describes one slide: on-screen text, narration and background query.
type SlideSpec struct {
	SlideNumber  int      `json:"slide_number"`
	Title        string   `json:"title"`
	BulletPoints []string `json:"bullet_points"`
	Script       string   `json:"script"`
	ImageQuery   string   `json:"image_query"`
}

// UnmarshalJSON accepts image_prompt_en as an alias of image_query.
func (s *SlideSpec) UnmarshalJSON(data []byte) error {
	type plain SlideSpec
	var aux struct {
		plain
		ImagePromptEN string `json:"image_prompt_en"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = SlideSpec(aux.plain)
	if s.ImageQuery == "" {
		s.ImageQuery = aux.ImagePromptEN
	}
	return nil
}

// Validate checks that the plan has slides with positive, unique numbers.
func (p *PresentationPlan) Validate() error {
	if p == nil || len(p.Slides) == 0 {
		return errors.New("plan has no slides")
	}
	seen := make(map[int]bool, len(p.Slides))
	for i, s := range p.Slides {
		if s.SlideNumber <= 0 {
			return fmt.Errorf("slide %d: slide_number must be positive, got %d", i+1, s.SlideNumber)
		}
		if seen[s.SlideNumber] {
			return fmt.Errorf("duplicate slide_number %d", s.SlideNumber)
		}
		seen[s.SlideNumber] = true
	}
	return nil
}

// Ordered returns a copy of the slides sorted by slide number.
func (p *PresentationPlan) Ordered() []SlideSpec {
	out := append([]SlideSpec(nil), p.Slides...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SlideNumber < out[j].SlideNumber
	})
	return out
}

// VisualFingerprint identifies the inputs that determine a slide's composed image.
func (s SlideSpec) VisualFingerprint() string {
	return fingerprint(s.Title, strings.Join(s.BulletPoints, "\x1f"), s.ImageQuery)
}

// NarrationFingerprint identifies the inputs that determine a slide's audio.
func (s SlideSpec) NarrationFingerprint(voice string) string {
	return fingerprint(s.Script, voice)
}

func fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ParsePlan decodes a plan from JSON, tolerating a surrounding Markdown code fence.
func ParsePlan(data []byte) (*PresentationPlan, error) {
	data = stripCodeFence(data)

	var plan PresentationPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func stripCodeFence(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return trimmed
	}
	// drop the opening fence line (``` or ```json)
	if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
		trimmed = trimmed[i+1:]
	} else {
		return trimmed
	}
	if j := bytes.LastIndex(trimmed, []byte("```")); j >= 0 {
		trimmed = trimmed[:j]
	}
	return bytes.TrimSpace(trimmed)
}

// RenderRequest asks for one plan to be rendered into a video.
type RenderRequest struct {
	RunID   string           `json:"run_id,omitempty"`
	Plan    PresentationPlan `json:"plan"`
	Voice   string           `json:"voice,omitempty"`
	Publish bool             `json:"publish,omitempty"`
}
