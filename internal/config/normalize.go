package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	if err := c.normalizeBrand(); err != nil {
		return err
	}
	c.normalizeDeliver()
	c.normalizeSinks()
	if err := c.normalizeArchiveSinks(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(orDefault(c.Paths.WorkDir, defaultWorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(orDefault(c.Paths.StateDir, defaultStateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(orDefault(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.StateDir, "relay.sock")
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	if c.Queue.File, err = expandPath(orDefault(c.Queue.File, defaultQueueFile)); err != nil {
		return fmt.Errorf("queue.file: %w", err)
	}
	if strings.TrimSpace(c.Queue.Backup) == "" {
		c.Queue.Backup = filepath.Join(filepath.Dir(c.Queue.File), defaultQueueBackupName)
	}
	if c.Queue.Backup, err = expandPath(c.Queue.Backup); err != nil {
		return fmt.Errorf("queue.backup: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, "history.db")
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if strings.TrimSpace(c.History.ReceiptsPath) == "" {
		c.History.ReceiptsPath = filepath.Join(c.Paths.StateDir, "receipts")
	}
	if c.History.ReceiptsPath, err = expandPath(c.History.ReceiptsPath); err != nil {
		return fmt.Errorf("history.receipts_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() error {
	c.Fetch.Binary = orDefault(c.Fetch.Binary, defaultFetchBinary)
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if strings.TrimSpace(c.Fetch.CookiesFile) != "" {
		var err error
		if c.Fetch.CookiesFile, err = expandPath(strings.TrimSpace(c.Fetch.CookiesFile)); err != nil {
			return fmt.Errorf("fetch.cookies_file: %w", err)
		}
	}
	if c.Fetch.RefetchMargin == 0 {
		c.Fetch.RefetchMargin = defaultRefetchMargin
	}
	return nil
}

func (c *Config) normalizeBrand() error {
	c.Brand.Text = strings.TrimSpace(c.Brand.Text)
	c.Brand.Preset = orDefault(c.Brand.Preset, defaultBrandPreset)
	if c.Brand.FontSize <= 0 {
		c.Brand.FontSize = defaultBrandFontSize
	}
	if strings.TrimSpace(c.Brand.FontPath) != "" {
		var err error
		if c.Brand.FontPath, err = expandPath(strings.TrimSpace(c.Brand.FontPath)); err != nil {
			return fmt.Errorf("brand.font_path: %w", err)
		}
	}
	c.Fit.Preset = orDefault(c.Fit.Preset, defaultFitPreset)
	c.Fit.AudioBitrate = orDefault(c.Fit.AudioBitrate, defaultFitAudioBitrate)
	return nil
}

func (c *Config) normalizeDeliver() {
	c.Deliver.Primary = strings.ToLower(strings.TrimSpace(c.Deliver.Primary))
	c.Deliver.Secondary = strings.ToLower(strings.TrimSpace(c.Deliver.Secondary))
	c.Deliver.CaptionSuffix = strings.TrimSpace(c.Deliver.CaptionSuffix)
	if c.Deliver.TimeoutStepMB <= 0 {
		c.Deliver.TimeoutStepMB = defaultTimeoutStepMB
	}
	if c.Deliver.TimeoutMaxMultiplier <= 0 {
		c.Deliver.TimeoutMaxMultiplier = defaultTimeoutMaxMult
	}
}

func (c *Config) normalizeSinks() {
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	if c.Telegram.Token == "" {
		c.Telegram.Token = lookupEnv("RELAY_TELEGRAM_TOKEN")
	}
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	c.Telegram.LogChatID = strings.TrimSpace(c.Telegram.LogChatID)
	c.Telegram.APIBase = strings.TrimRight(orDefault(c.Telegram.APIBase, defaultTelegramAPIBase), "/")

	c.Facebook.Token = strings.TrimSpace(c.Facebook.Token)
	if c.Facebook.Token == "" {
		c.Facebook.Token = lookupEnv("RELAY_FACEBOOK_TOKEN")
	}
	c.Facebook.PageID = strings.TrimSpace(c.Facebook.PageID)
	c.Facebook.GraphBase = strings.TrimRight(orDefault(c.Facebook.GraphBase, defaultGraphBase), "/")
}

func (c *Config) normalizeArchiveSinks() error {
	if c.S3.AccessKey == "" {
		c.S3.AccessKey = lookupEnv("AWS_ACCESS_KEY_ID")
	}
	if c.S3.SecretKey == "" {
		c.S3.SecretKey = lookupEnv("AWS_SECRET_ACCESS_KEY")
	}
	if c.S3.Region == "" {
		c.S3.Region = lookupEnv("AWS_REGION")
	}
	c.S3.Prefix = strings.Trim(strings.TrimSpace(c.S3.Prefix), "/")
	c.GCS.Prefix = strings.Trim(strings.TrimSpace(c.GCS.Prefix), "/")

	var err error
	if strings.TrimSpace(c.GCS.CredentialsFile) != "" {
		if c.GCS.CredentialsFile, err = expandPath(strings.TrimSpace(c.GCS.CredentialsFile)); err != nil {
			return fmt.Errorf("gcs.credentials_file: %w", err)
		}
	}
	if c.SFTP.Port <= 0 {
		c.SFTP.Port = defaultSFTPPort
	}
	if c.SFTP.Password == "" {
		c.SFTP.Password = lookupEnv("RELAY_SFTP_PASSWORD")
	}
	if strings.TrimSpace(c.SFTP.PrivateKeyFile) != "" {
		if c.SFTP.PrivateKeyFile, err = expandPath(strings.TrimSpace(c.SFTP.PrivateKeyFile)); err != nil {
			return fmt.Errorf("sftp.private_key_file: %w", err)
		}
	}
	if strings.TrimSpace(c.SFTP.KnownHostsFile) != "" {
		if c.SFTP.KnownHostsFile, err = expandPath(strings.TrimSpace(c.SFTP.KnownHostsFile)); err != nil {
			return fmt.Errorf("sftp.known_hosts_file: %w", err)
		}
	}
	if strings.TrimSpace(c.Directory.Path) != "" {
		if c.Directory.Path, err = expandPath(strings.TrimSpace(c.Directory.Path)); err != nil {
			return fmt.Errorf("directory.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeRemote() {
	c.Remote.Addr = strings.TrimSpace(c.Remote.Addr)
	c.Remote.Stream = orDefault(c.Remote.Stream, defaultRemoteStream)
	if c.Remote.Password == "" {
		c.Remote.Password = lookupEnv("RELAY_REDIS_PASSWORD")
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = canonicalFormat(c.Logging.Format, defaultLogFormat)
	c.Logging.FileFormat = canonicalFormat(c.Logging.FileFormat, defaultLogFileFormat)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func canonicalFormat(value, fallback string) string {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "console", "json":
		return v
	default:
		return fallback
	}
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
