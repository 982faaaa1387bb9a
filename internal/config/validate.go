package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateDeliver(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if c.Remote.Enabled && c.Remote.Addr == "" {
		return errors.New("remote.addr must be set when remote.enabled is true")
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.format_cap":     c.Fetch.FormatCap,
		"fetch.socket_timeout": c.Fetch.SocketTimeout,
		"fetch.timeout":        c.Fetch.Timeout,
	}); err != nil {
		return err
	}
	if c.Fetch.RefetchMargin < 1 {
		return errors.New("fetch.refetch_margin must be at least 1.0")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if err := ensurePositiveMap(map[string]int{
		"brand.timeout": c.Brand.Timeout,
		"fit.timeout":   c.Fit.Timeout,
	}); err != nil {
		return err
	}
	if c.Brand.Opacity < 0 || c.Brand.Opacity > 255 {
		return errors.New("brand.opacity must be between 0 and 255")
	}
	if c.Brand.Enabled && c.Brand.Text == "" {
		return errors.New("brand.text must be set when brand.enabled is true")
	}
	if c.Fit.CRF < 0 || c.Fit.CRF > 51 {
		return errors.New("fit.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateDeliver() error {
	if c.Deliver.Primary == "" {
		return errors.New("deliver.primary must be set")
	}
	if !slices.Contains(KnownSinks, c.Deliver.Primary) {
		return fmt.Errorf("deliver.primary: unknown sink %q (expected one of %s)", c.Deliver.Primary, strings.Join(KnownSinks, ", "))
	}
	if c.Deliver.Secondary != "" {
		if !slices.Contains(KnownSinks, c.Deliver.Secondary) {
			return fmt.Errorf("deliver.secondary: unknown sink %q (expected one of %s)", c.Deliver.Secondary, strings.Join(KnownSinks, ", "))
		}
		if c.Deliver.Secondary == c.Deliver.Primary {
			return errors.New("deliver.secondary must differ from deliver.primary")
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"deliver.connect_timeout": c.Deliver.ConnectTimeout,
		"deliver.read_timeout":    c.Deliver.ReadTimeout,
		"deliver.write_timeout":   c.Deliver.WriteTimeout,
	}); err != nil {
		return err
	}
	for _, sink := range []string{c.Deliver.Primary, c.Deliver.Secondary} {
		if err := c.validateSink(sink); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSink(name string) error {
	switch name {
	case "":
		return nil
	case SinkTelegram, SinkTelegramLog:
		if c.Telegram.Token == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("telegram.token is required. Set RELAY_TELEGRAM_TOKEN or edit %s (create with 'relay config init')", defaultPath)
		}
		if name == SinkTelegram && c.Telegram.ChatID == "" {
			return errors.New("telegram.chat_id must be set when the telegram sink is selected")
		}
		if name == SinkTelegramLog && c.Telegram.LogChatID == "" {
			return errors.New("telegram.log_chat_id must be set when the telegram_log sink is selected")
		}
	case SinkFacebook:
		if c.Facebook.PageID == "" || c.Facebook.Token == "" {
			return errors.New("facebook.page_id and facebook.token (or RELAY_FACEBOOK_TOKEN) must be set when the facebook sink is selected")
		}
	case SinkS3:
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return errors.New("s3.bucket and s3.region must be set when the s3 sink is selected")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return errors.New("s3.access_key and s3.secret_key (or AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY) must be set when the s3 sink is selected")
		}
	case SinkGCS:
		if c.GCS.Bucket == "" {
			return errors.New("gcs.bucket must be set when the gcs sink is selected")
		}
	case SinkSFTP:
		if c.SFTP.Host == "" || c.SFTP.User == "" || c.SFTP.RemoteDir == "" {
			return errors.New("sftp.host, sftp.user and sftp.remote_dir must be set when the sftp sink is selected")
		}
		if c.SFTP.Password == "" && c.SFTP.PrivateKeyFile == "" {
			return errors.New("sftp.password or sftp.private_key_file must be set when the sftp sink is selected")
		}
	case SinkDirectory:
		if c.Directory.Path == "" {
			return errors.New("directory.path must be set when the directory sink is selected")
		}
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.CooldownSeconds < 0 {
		return errors.New("batch.cooldown_seconds must not be negative")
	}
	if err := ensurePositiveMap(map[string]int{
		"batch.countdown_interval_seconds": c.Batch.CountdownIntervalSeconds,
	}); err != nil {
		return err
	}
	if c.Batch.CountdownBurstSeconds < 0 || c.Batch.SkipAckSeconds < 0 {
		return errors.New("batch.countdown_burst_seconds and batch.skip_ack_seconds must not be negative")
	}
	if c.Cleanup.RetryDelayMillis < 0 {
		return errors.New("cleanup.retry_delay_ms must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
