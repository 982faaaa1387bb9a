package fetch

import (
	"time"

	"relay/internal/config"
)

// Options configures the yt-dlp invocation.
type Options struct {
	Binary        string
	FormatCap     int
	SocketTimeout int
	UserAgent     string
	CookiesFile   string
	RefetchMargin float64
	Timeout       time.Duration
	// ProgressInterval bounds how often the progress callback fires.
	ProgressInterval time.Duration
}

// OptionsFromConfig maps the fetch section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Binary:           cfg.Fetch.Binary,
		FormatCap:        cfg.Fetch.FormatCap,
		SocketTimeout:    cfg.Fetch.SocketTimeout,
		UserAgent:        cfg.Fetch.UserAgent,
		CookiesFile:      cfg.Fetch.CookiesFile,
		RefetchMargin:    cfg.Fetch.RefetchMargin,
		Timeout:          time.Duration(cfg.Fetch.Timeout) * time.Second,
		ProgressInterval: cfg.CountdownInterval() / 3,
	}
}

func (o Options) binary() string {
	if o.Binary == "" {
		return "yt-dlp"
	}
	return o.Binary
}

func (o Options) margin() float64 {
	if o.RefetchMargin < 1 {
		return 1
	}
	return o.RefetchMargin
}
