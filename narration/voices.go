package narration

import (
	"strings"

	"slidestudio/config"
)

// VoiceID is an edge-tts neural voice name.
type VoiceID string

const (
	// VoiceNanami is the standard, formal female narrator.
	VoiceNanami VoiceID = config.DefaultVoice
	// VoiceKeita is the narrative male narrator.
	VoiceKeita VoiceID = "ja-JP-KeitaNeural"
)

// Voice describes a selectable narrator.
type Voice struct {
	Preset      string  `json:"preset"`
	ID          VoiceID `json:"id"`
	Description string  `json:"description"`
}

// Voices lists the built-in narrators, default first.
var Voices = []Voice{
	{Preset: "nanami", ID: VoiceNanami, Description: "Standard, formal female voice"},
	{Preset: "keita", ID: VoiceKeita, Description: "Narrative male voice"},
}

// ResolveVoice maps a preset name to its voice ID. Empty input yields the
// default voice and any other value is passed through as a raw voice ID.
func ResolveVoice(name string) VoiceID {
	name = strings.TrimSpace(name)
	if name == "" {
		return VoiceNanami
	}
	for _, v := range Voices {
		if strings.EqualFold(v.Preset, name) {
			return v.ID
		}
	}
	return VoiceID(name)
}
