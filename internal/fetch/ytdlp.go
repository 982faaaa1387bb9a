package fetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var commandContext = exec.CommandContext

// Metadata is the subset of yt-dlp's info JSON relay keeps.
type Metadata struct {
	ID         string
	Title      string
	Duration   time.Duration
	Ext        string
	Width      int
	Height     int
	Uploader   string
	WebpageURL string
	Filepath   string
}

type infoJSON struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Duration          float64 `json:"duration"`
	Ext               string  `json:"ext"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Uploader          string  `json:"uploader"`
	WebpageURL        string  `json:"webpage_url"`
	Filename          string  `json:"_filename"`
	RequestedDownload []struct {
		Filepath string `json:"filepath"`
	} `json:"requested_downloads"`
}

func (i infoJSON) metadata() Metadata {
	m := Metadata{
		ID:         i.ID,
		Title:      strings.TrimSpace(i.Title),
		Duration:   time.Duration(i.Duration * float64(time.Second)),
		Ext:        i.Ext,
		Width:      i.Width,
		Height:     i.Height,
		Uploader:   i.Uploader,
		WebpageURL: i.WebpageURL,
		Filepath:   i.Filename,
	}
	for _, d := range i.RequestedDownload {
		if d.Filepath != "" {
			m.Filepath = d.Filepath
			break
		}
	}
	return m
}

// formatSelector returns the yt-dlp -f expression for a pass.
func formatSelector(heightCap int, worst bool) string {
	if worst {
		return "worst"
	}
	if heightCap <= 0 {
		return "best"
	}
	return fmt.Sprintf("best[height<=%d]/bv*[height<=%d]+ba/b", heightCap, heightCap)
}

func buildArgs(opts Options, locator, outputTemplate string, worst bool) ([]string, error) {
	args := []string{
		"--no-playlist",
		"--newline",
		"--progress",
		"--no-simulate",
		"--dump-json",
		"-f", formatSelector(opts.FormatCap, worst),
		"-o", outputTemplate,
	}
	if opts.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", fmt.Sprintf("%d", opts.SocketTimeout))
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	if strings.TrimSpace(opts.CookiesFile) != "" {
		cookiesPath, err := resolveCookiesPath(opts.CookiesFile)
		if err != nil {
			return nil, err
		}
		args = append(args, "--cookies", cookiesPath)
	}
	return append(args, "--", locator), nil
}

type runOutput struct {
	meta    Metadata
	hasMeta bool
	stderr  string
}

// run executes yt-dlp, feeding progress lines to onProgress and capturing
// the info JSON line.
func run(ctx context.Context, binary string, args []string, onProgress func(Progress)) (runOutput, error) {
	cmd := commandContext(ctx, binary, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return runOutput{}, fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return runOutput{}, fmt.Errorf("setup stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return runOutput{}, fmt.Errorf("start %s: %w", binary, err)
	}

	var (
		out    runOutput
		errBuf strings.Builder
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	read := func(r io.Reader, captureErr bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "{") {
				var info infoJSON
				if json.Unmarshal([]byte(line), &info) == nil {
					mu.Lock()
					out.meta = info.metadata()
					out.hasMeta = true
					mu.Unlock()
				}
				continue
			}
			if p, ok := parseProgress(line); ok {
				if onProgress != nil {
					onProgress(p)
				}
				continue
			}
			if captureErr {
				mu.Lock()
				appendLimited(&errBuf, line)
				mu.Unlock()
			}
		}
	}

	wg.Add(2)
	go read(stdoutPipe, false)
	go read(stderrPipe, true)
	wg.Wait()

	waitErr := cmd.Wait()
	out.stderr = strings.TrimSpace(errBuf.String())
	if waitErr != nil {
		return out, fmt.Errorf("%s failed: %w", filepath.Base(binary), waitErr)
	}
	return out, nil
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendLimited(b *strings.Builder, line string) {
	const maxKeep = 8192
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	if remain := maxKeep - b.Len(); len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}

func resolveCookiesPath(path string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("resolve cookies path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("cookies file %s: %w", abs, err)
	}
	return abs, nil
}

// lastErrorLine picks the most useful line out of yt-dlp stderr.
func lastErrorLine(stderr string) string {
	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
