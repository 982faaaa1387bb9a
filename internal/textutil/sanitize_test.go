package textutil

import "testing"

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Café Olé – Episode 2", 0, "cafe-ole-episode-2"},
		{"  ***  ", 0, "untitled"},
		{"Über Größe", 0, "uber-gro-e"},
		{"one two three", 7, "one-two"},
		{"日本語", 0, "untitled"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in, tt.max); got != tt.want {
			t.Errorf("Slug(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 50, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"ééééé", 4, "é..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
