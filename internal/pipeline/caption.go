package pipeline

import "strings"

const unbrandedNote = "[unbranded]"

// BuildCaption joins the title, the fallback annotation and the configured
// suffix with single spaces.
func BuildCaption(title string, brandFallback bool, suffix string) string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, t)
	}
	if brandFallback {
		parts = append(parts, unbrandedNote)
	}
	if s := strings.TrimSpace(suffix); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
