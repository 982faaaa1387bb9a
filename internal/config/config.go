package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	// SocketPath defaults to <state_dir>/relay.sock.
	SocketPath string `toml:"socket_path"`
}

// Fetch configures the yt-dlp binding.
type Fetch struct {
	Binary        string  `toml:"binary"`
	FormatCap     int     `toml:"format_cap"`
	SocketTimeout int     `toml:"socket_timeout"`
	UserAgent     string  `toml:"user_agent"`
	CookiesFile   string  `toml:"cookies_file"`
	RefetchMargin float64 `toml:"refetch_margin"`
	Timeout       int     `toml:"timeout"`
}

// Brand configures the watermark overlay.
type Brand struct {
	Enabled  bool    `toml:"enabled"`
	Text     string  `toml:"text"`
	FontPath string  `toml:"font_path"`
	FontSize float64 `toml:"font_size"`
	Opacity  int     `toml:"opacity"`
	Preset   string  `toml:"preset"`
	Scroll   bool    `toml:"scroll"`
	Timeout  int     `toml:"timeout"`
}

// Fit configures the single reduced-quality re-encode.
type Fit struct {
	CRF          int    `toml:"crf"`
	Preset       string `toml:"preset"`
	AudioBitrate string `toml:"audio_bitrate"`
	Timeout      int    `toml:"timeout"`
}

// Deliver selects sinks and the transfer timeout budget.
type Deliver struct {
	Primary              string `toml:"primary"`
	Secondary            string `toml:"secondary"`
	CaptionSuffix        string `toml:"caption_suffix"`
	ConnectTimeout       int    `toml:"connect_timeout"`
	ReadTimeout          int    `toml:"read_timeout"`
	WriteTimeout         int    `toml:"write_timeout"`
	TimeoutStepMB        int    `toml:"timeout_step_mb"`
	TimeoutMaxMultiplier int    `toml:"timeout_max_multiplier"`
}

// Telegram configures the Bot API sinks ("telegram" and "telegram_log").
type Telegram struct {
	Token     string `toml:"token"`
	ChatID    string `toml:"chat_id"`
	LogChatID string `toml:"log_chat_id"`
	APIBase   string `toml:"api_base"`
	CeilingMB int    `toml:"ceiling_mb"`
}

// Facebook configures the Graph API page video sink.
type Facebook struct {
	PageID    string `toml:"page_id"`
	Token     string `toml:"token"`
	GraphBase string `toml:"graph_base"`
	CeilingMB int    `toml:"ceiling_mb"`
}

// S3 configures the S3 archive sink.
type S3 struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Prefix    string `toml:"prefix"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// GCS configures the Google Cloud Storage archive sink.
type GCS struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	CredentialsFile string `toml:"credentials_file"`
}

// SFTP configures the SFTP archive sink.
type SFTP struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	PrivateKeyFile string `toml:"private_key_file"`
	KnownHostsFile string `toml:"known_hosts_file"`
	RemoteDir      string `toml:"remote_dir"`
}

// Directory configures the local directory archive sink.
type Directory struct {
	Path string `toml:"path"`
}

// Queue locates the work queue file and its backup.
type Queue struct {
	File   string `toml:"file"`
	Backup string `toml:"backup"`
}

// Batch controls cooldown timing between items.
type Batch struct {
	CooldownSeconds          int  `toml:"cooldown_seconds"`
	CountdownIntervalSeconds int  `toml:"countdown_interval_seconds"`
	CountdownBurstSeconds    int  `toml:"countdown_burst_seconds"`
	SkipAckSeconds           int  `toml:"skip_ack_seconds"`
	AutoStart                bool `toml:"auto_start"`
}

// Cleanup controls artifact removal.
type Cleanup struct {
	RetryDelayMillis int `toml:"retry_delay_ms"`
	StaleAfterHours  int `toml:"stale_after_hours"`
}

// Remote configures the redis control stream.
type Remote struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Stream   string `toml:"stream"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	ItemSuccess    bool   `toml:"item_success"`
	ItemFailure    bool   `toml:"item_failure"`
	Batch          bool   `toml:"batch"`
	Cooldown       bool   `toml:"cooldown"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	FileFormat    string `toml:"file_format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// History configures the outcome log and delivery receipts.
type History struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	ReceiptsPath string `toml:"receipts_path"`
}

// Config encapsulates all configuration values for relay.
//
// Configuration sections by subsystem:
//   - Paths: work, state, and log directories plus the control socket
//   - Fetch, Brand, Fit: the media pipeline stages
//   - Deliver: sink selection and transfer timeout budget
//   - Telegram, Facebook, S3, GCS, SFTP, Directory: sink settings
//   - Queue, Batch: the work queue file and cooldown timing
//   - Cleanup: artifact cleanup retry and stale sweep
//   - Remote: redis control stream
//   - Notifications, Logging, History: reporting
type Config struct {
	Paths         Paths         `toml:"paths"`
	Fetch         Fetch         `toml:"fetch"`
	Brand         Brand         `toml:"brand"`
	Fit           Fit           `toml:"fit"`
	Deliver       Deliver       `toml:"deliver"`
	Telegram      Telegram      `toml:"telegram"`
	Facebook      Facebook      `toml:"facebook"`
	S3            S3            `toml:"s3"`
	GCS           GCS           `toml:"gcs"`
	SFTP          SFTP          `toml:"sftp"`
	Directory     Directory     `toml:"directory"`
	Queue         Queue         `toml:"queue"`
	Batch         Batch         `toml:"batch"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Remote        Remote        `toml:"remote"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	History       History       `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		if value, ok := os.LookupEnv("RELAY_CONFIG"); ok && strings.TrimSpace(value) != "" {
			path = value
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("relay.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir, filepath.Dir(c.Queue.File)}
	if c.Deliver.Primary == SinkDirectory || c.Deliver.Secondary == SinkDirectory {
		dirs = append(dirs, c.Directory.Path)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "relay.lock")
}

// PIDPath returns the daemon pid file path.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "relay.pid")
}

// QueueLockPath returns the advisory lock guarding queue file mutations.
func (c *Config) QueueLockPath() string {
	return c.Queue.File + ".lock"
}

// CeilingBytes returns the size ceiling for a sink, or 0 when it has none.
func (c *Config) CeilingBytes(sink string) int64 {
	var mb int
	switch sink {
	case SinkTelegram, SinkTelegramLog:
		mb = c.Telegram.CeilingMB
	case SinkFacebook:
		mb = c.Facebook.CeilingMB
	}
	if mb <= 0 {
		return 0
	}
	return int64(mb) * 1024 * 1024
}

// CooldownDuration returns the configured inter-item cooldown.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Batch.CooldownSeconds) * time.Second
}

// CountdownInterval returns the minimum spacing between countdown reports.
func (c *Config) CountdownInterval() time.Duration {
	return time.Duration(c.Batch.CountdownIntervalSeconds) * time.Second
}

// CountdownBurst returns the window at the start of a cooldown during which
// every tick is reported.
func (c *Config) CountdownBurst() time.Duration {
	return time.Duration(c.Batch.CountdownBurstSeconds) * time.Second
}

// SkipAck returns the acknowledgement delay applied when a cooldown is skipped.
func (c *Config) SkipAck() time.Duration {
	return time.Duration(c.Batch.SkipAckSeconds) * time.Second
}

// CleanupRetryDelay returns the pause before retrying a failed artifact removal.
func (c *Config) CleanupRetryDelay() time.Duration {
	return time.Duration(c.Cleanup.RetryDelayMillis) * time.Millisecond
}

// StaleAfter returns the age after which leftover work files are swept.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Cleanup.StaleAfterHours) * time.Hour
}

// FFmpegBinary returns the ffmpeg executable name used for compositing and re-encoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
