package fetch

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	rePct   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)
	reSpeed = regexp.MustCompile(`\bat\s+([^\s]+)`)
	reETA   = regexp.MustCompile(`\bETA\s+([0-9:]+)`)
	reOf    = regexp.MustCompile(`\bof\s+~?\s*([^\s]+)`)
)

// Progress is one parsed yt-dlp progress line.
type Progress struct {
	Percent float64
	Total   string
	Speed   string
	ETA     string
	Elapsed time.Duration
	Pass    int
}

// parseProgress extracts progress from a "[download]" line. It reports false
// for anything else.
func parseProgress(line string) (Progress, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return Progress{}, false
	}
	m := rePct.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}
	p := Progress{Percent: pct}
	if m := reOf.FindStringSubmatch(line); m != nil {
		p.Total = m[1]
	}
	if m := reSpeed.FindStringSubmatch(line); m != nil && !strings.HasPrefix(m[1], "Unknown") {
		p.Speed = m[1]
	}
	if m := reETA.FindStringSubmatch(line); m != nil {
		p.ETA = m[1]
	}
	return p, true
}
