package queue

import "testing"

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		ok      bool
		locator string
		title   string
	}{
		{name: "blank", raw: "   ", ok: false},
		{name: "comment", raw: "# Ep0 https://example/video?id=000", ok: false},
		{name: "indented comment", raw: "   # note", ok: false},
		{name: "bare url", raw: "https://example/video?id=AAA", ok: true, locator: "https://example/video?id=AAA"},
		{name: "titled", raw: "Ep1 https://example/video?id=AAA", ok: true, locator: "https://example/video?id=AAA", title: "Ep1"},
		{name: "multi word title", raw: "  The Big One  https://example/v/1 trailing", ok: true, locator: "https://example/v/1", title: "The Big One"},
		{name: "http scheme", raw: "Clip http://example/v/2", ok: true, locator: "http://example/v/2", title: "Clip"},
		{name: "no scheme", raw: "dQw4w9WgXcQ", ok: true, locator: "dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := ParseLine(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if d.Locator != tt.locator || d.TitleOverride != tt.title {
				t.Fatalf("got %+v", d)
			}
		})
	}
}

func TestDescriptorTitleFallback(t *testing.T) {
	d, _ := ParseLine("https://example/v/1")
	if got := d.Title("Fetched"); got != "Fetched" {
		t.Fatalf("Title = %q", got)
	}
	d, _ = ParseLine("Mine https://example/v/1")
	if got := d.Title("Fetched"); got != "Mine" {
		t.Fatalf("Title = %q", got)
	}
}
