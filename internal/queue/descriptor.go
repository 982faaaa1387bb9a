package queue

import "strings"

// Descriptor is one unit of queued work. Line is the trimmed original text
// and is the identity used for removal.
type Descriptor struct {
	Line          string `json:"line"`
	Locator       string `json:"locator"`
	TitleOverride string `json:"title_override,omitempty"`
}

// ParseLine turns a queue file line into a descriptor. It reports false for
// blank and comment lines.
//
// A line has the form "[title ]https://...": the text before the first
// "https://" (or "http://") is the title override and the first field from
// there on is the locator. Lines without a scheme are taken verbatim as the
// locator.
func ParseLine(raw string) (Descriptor, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return Descriptor{}, false
	}
	d := Descriptor{Line: line, Locator: line}

	idx := strings.Index(line, "https://")
	if idx < 0 {
		idx = strings.Index(line, "http://")
	}
	if idx < 0 {
		return d, true
	}
	d.TitleOverride = strings.TrimSpace(line[:idx])
	rest := line[idx:]
	if fields := strings.Fields(rest); len(fields) > 0 {
		d.Locator = fields[0]
	}
	return d, true
}

// Title returns the override when set, else fallback.
func (d Descriptor) Title(fallback string) string {
	if d.TitleOverride != "" {
		return d.TitleOverride
	}
	return fallback
}
