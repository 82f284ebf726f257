package slide

import (
	"image"
	"image/color"

	"slidestudio/config"
)

// Split layout geometry. The text panel is the left 40% of the canvas.
const (
	PanelWidth    = int(config.CanvasWidth * config.ImagePanelRatio)
	TextAreaWidth = config.CanvasWidth - PanelWidth

	MarginX = 80
	StartY  = 150

	TitleSize     = 90
	TitleWrap     = 12
	TitleLineStep = 90

	SeparatorGap      = 30
	SeparatorAfter    = 60
	SeparatorWidth    = 4
	SeparatorEndInset = 50

	BodySize     = 60
	BodyWrap     = 18
	BodyLineStep = 70
	BulletGap    = 20

	// BottomMargin keeps text clear of the canvas bottom edge.
	BottomMargin = 60

	BulletPrefix       = "• "
	ContinuationPrefix = "  "
	Ellipsis           = "…"
)

var (
	BackgroundColor = color.RGBA{R: 30, G: 33, B: 40, A: 255}
	TitleColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	AccentColor     = color.RGBA{R: 0x4d, G: 0xa6, B: 0xff, A: 255}
	BodyColor       = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 255}
)

// LineKind distinguishes title lines from bullet lines.
type LineKind int

const (
	TitleLine LineKind = iota
	BodyLine
)

// TextLine is one positioned line of text; Y is the top of the line box.
type TextLine struct {
	Kind LineKind
	Text string
	X, Y int
}

// Size returns the font pixel size for the line.
func (l TextLine) Size() float64 {
	if l.Kind == TitleLine {
		return TitleSize
	}
	return BodySize
}

// Color returns the fill color for the line.
func (l TextLine) Color() color.RGBA {
	if l.Kind == TitleLine {
		return TitleColor
	}
	return BodyColor
}

// Layout is the positioned text of one slide.
type Layout struct {
	Lines []TextLine
	// Separator is the accent rule; empty when it fell below the bottom margin.
	Separator image.Rectangle
	// Dropped counts lines removed because they would cross the bottom margin.
	Dropped int
}

// Truncated reports whether any text was dropped.
func (l Layout) Truncated() bool { return l.Dropped > 0 }

// PlanLayout positions the title, separator and bullets top-down. Lines that
// would extend past the bottom margin are dropped and the last kept line,
// title or bullet, ends in an ellipsis.
func PlanLayout(title string, bullets []string) Layout {
	var l Layout
	limit := config.CanvasHeight - BottomMargin
	y := StartY

	for _, text := range Wrap(title, TitleWrap) {
		l.Lines = append(l.Lines, TextLine{Kind: TitleLine, Text: text, X: MarginX, Y: y})
		y += TitleLineStep
	}

	y += SeparatorGap
	if y+SeparatorWidth/2 <= limit {
		l.Separator = image.Rect(MarginX, y-SeparatorWidth/2, TextAreaWidth-SeparatorEndInset+1, y+SeparatorWidth/2)
	}
	y += SeparatorAfter

	for _, point := range bullets {
		for i, text := range Wrap(point, BodyWrap) {
			prefix := ContinuationPrefix
			if i == 0 {
				prefix = BulletPrefix
			}
			l.Lines = append(l.Lines, TextLine{Kind: BodyLine, Text: prefix + text, X: MarginX, Y: y})
			y += BodyLineStep
		}
		y += BulletGap
	}

	for i, line := range l.Lines {
		if line.Y+int(line.Size()) > limit {
			l.Dropped = len(l.Lines) - i
			l.Lines = l.Lines[:i]
			break
		}
	}
	if l.Truncated() && len(l.Lines) > 0 {
		l.Lines[len(l.Lines)-1].Text += Ellipsis
	}
	return l
}
