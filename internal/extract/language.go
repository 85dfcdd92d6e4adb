package extract

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// langDetectMinChars is the minimum trimmed text length before detection runs.
const langDetectMinChars = 50

// detectLanguage returns the ISO language code for text, or "unk" when the
// text is too short or detection is not confident.
func detectLanguage(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= langDetectMinChars {
		return "unk"
	}

	info := whatlanggo.Detect(trimmed)
	if !info.IsReliable() {
		return "unk"
	}
	return info.Lang.Iso6393()
}
