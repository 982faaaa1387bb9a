package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relay/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("Missing() = %+v", missing)
	}
}

func TestCheckSystemDepsMarksFFmpegOptionalWithoutBrand(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := config.Default()
	cfg.Brand.Enabled = false

	statuses := CheckSystemDeps(&cfg)
	byName := map[string]Status{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	if byName["FFmpeg"].Optional != true {
		t.Fatal("ffmpeg should be optional when branding is off")
	}
	if byName["yt-dlp"].Optional || byName["yt-dlp"].Available {
		t.Fatalf("unexpected yt-dlp status %+v", byName["yt-dlp"])
	}

	cfg.Brand.Enabled = true
	for _, s := range CheckSystemDeps(&cfg) {
		if s.Name == "FFmpeg" && s.Optional {
			t.Fatal("ffmpeg should be required when branding is on")
		}
	}
}

func TestCheckDirectory(t *testing.T) {
	dir := t.TempDir()
	if s := CheckDirectory("work", dir); !s.Available {
		t.Fatalf("expected writable dir, got %+v", s)
	}
	if s := CheckDirectory("work", filepath.Join(dir, "missing")); s.Available || s.Detail != "does not exist" {
		t.Fatalf("unexpected status %+v", s)
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if s := CheckDirectory("work", file); s.Available || s.Detail != "not a directory" {
		t.Fatalf("unexpected status %+v", s)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	free, err := FreeSpace(dir)
	if err != nil {
		t.Fatalf("FreeSpace: %v", err)
	}
	if free == 0 {
		t.Skip("filesystem reports no free space")
	}
	if s := CheckFreeSpace("work", dir, 1); !s.Available || !strings.HasSuffix(s.Detail, "free") {
		t.Fatalf("unexpected status %+v", s)
	}
	if s := CheckFreeSpace("work", dir, free*4+1<<40); s.Available || !strings.Contains(s.Detail, "below") {
		t.Fatalf("expected low space status, got %+v", s)
	}
	if _, err := FreeSpace(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}
}
