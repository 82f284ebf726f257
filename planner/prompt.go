// Package planner turns free text, article URLs or feeds into a
// PresentationPlan with an LLM.
package planner

import (
	"fmt"
	"strings"

	"slidestudio/config"
)

// Tone sets the register of the generated narration.
type Tone string

const (
	ToneFormal    Tone = "formal"
	ToneCasual    Tone = "casual"
	ToneEnergetic Tone = "energetic"
)

var toneLabels = map[Tone]string{
	ToneFormal:    "フォーマル (Formal)",
	ToneCasual:    "カジュアル (Casual)",
	ToneEnergetic: "エネルギッシュ (Energetic)",
}

// Request asks for a plan built from Text.
type Request struct {
	Text       string `json:"text" binding:"required"`
	SlideCount int    `json:"slide_count"`
	Tone       Tone   `json:"tone"`
}

// Normalize clamps the slide count and defaults the tone.
func (r Request) Normalize() Request {
	switch {
	case r.SlideCount == 0:
		r.SlideCount = config.DefaultSlideCount
	case r.SlideCount < config.MinSlideCount:
		r.SlideCount = config.MinSlideCount
	case r.SlideCount > config.MaxSlideCount:
		r.SlideCount = config.MaxSlideCount
	}
	r.Tone = Tone(strings.ToLower(strings.TrimSpace(string(r.Tone))))
	if _, ok := toneLabels[r.Tone]; !ok {
		r.Tone = ToneFormal
	}
	return r
}

const promptTemplate = `あなたはプロのプレゼンテーション制作者です。
次の入力テキストをもとに、ナレーション付き動画プレゼンテーションのスライド構成を作ってください。

【条件】
- スライド枚数: %d枚程度
- トーン: %s
- 出力: JSONのみ (Markdownのコードブロックは付けない)

【JSONの形】
{
  "theme": "プレゼン全体のテーマ",
  "slides": [
    {
      "slide_number": 1,
      "title": "スライドのタイトル",
      "bullet_points": ["箇条書き1", "箇条書き2"],
      "script": "このスライドで読み上げる日本語のナレーション",
      "image_query": "English search query for a background photo"
    }
  ]
}

【注意】
- image_query は文字を含まず背景に使いやすい写真を探すための短い英語の検索語にしてください。
- script は視聴者に語りかける自然な話し言葉にしてください。
- slide_number は 1 から順番に振ってください。

【入力テキスト】
%s`

// BuildPrompt renders the plan generation prompt for r.
func BuildPrompt(r Request) string {
	r = r.Normalize()
	return fmt.Sprintf(promptTemplate, r.SlideCount, toneLabels[r.Tone], strings.TrimSpace(r.Text))
}
