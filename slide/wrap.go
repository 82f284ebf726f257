package slide

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Wrap breaks text into lines of at most width characters, where a character
// is a grapheme cluster. Words are packed greedily; a word longer than width
// (unspaced Japanese, long URLs) is split at the budget.
func Wrap(text string, width int) []string {
	if width <= 0 {
		width = 1
	}

	var (
		lines   []string
		line    strings.Builder
		lineLen int
	)
	flush := func() {
		if lineLen > 0 {
			lines = append(lines, line.String())
		}
		line.Reset()
		lineLen = 0
	}

	for _, word := range strings.FieldsFunc(text, unicode.IsSpace) {
		clusters := graphemes(word)

		if lineLen > 0 && lineLen+1+len(clusters) <= width {
			line.WriteByte(' ')
			line.WriteString(word)
			lineLen += 1 + len(clusters)
			continue
		}

		// an overlong word first fills what is left of the current line
		if len(clusters) > width && lineLen > 0 {
			if room := width - lineLen - 1; room > 0 {
				line.WriteByte(' ')
				line.WriteString(strings.Join(clusters[:room], ""))
				clusters = clusters[room:]
			}
		}
		flush()
		for len(clusters) > width {
			lines = append(lines, strings.Join(clusters[:width], ""))
			clusters = clusters[width:]
		}
		line.WriteString(strings.Join(clusters, ""))
		lineLen = len(clusters)
	}
	flush()
	return lines
}

func graphemes(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}
