// Package publish uploads finished videos to external destinations.
package publish

import (
	"context"
	"fmt"
	"strings"

	"slidestudio/config"
	"slidestudio/types"
)

// Publisher uploads a rendered video and returns where it ended up.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, runID, videoPath string, meta Metadata) (location string, err error)
}

// Metadata describes a published video.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
}

// MetadataFromPlan derives upload metadata from a presentation plan.
func MetadataFromPlan(plan *types.PresentationPlan) Metadata {
	title := strings.TrimSpace(plan.Theme)
	if title == "" {
		title = "Presentation"
	}
	if r := []rune(title); len(r) > config.MaxTitleLength {
		title = string(r[:config.MaxTitleLength-3]) + "..."
	}

	var b strings.Builder
	b.WriteString(plan.Theme)
	b.WriteString("\n\n")
	for _, s := range plan.Ordered() {
		fmt.Fprintf(&b, "%d. %s\n", s.SlideNumber, s.Title)
	}
	b.WriteString("\n#presentation #slides")

	return Metadata{
		Title:       title,
		Description: b.String(),
		Tags:        []string{"presentation", "slides", "narrated", "explainer"},
		CategoryID:  config.YouTubeCategoryID,
	}
}
