package config

// Sink names accepted by deliver.primary and deliver.secondary.
const (
	SinkTelegram    = "telegram"
	SinkTelegramLog = "telegram_log"
	SinkFacebook    = "facebook"
	SinkS3          = "s3"
	SinkGCS         = "gcs"
	SinkSFTP        = "sftp"
	SinkDirectory   = "directory"
)

// KnownSinks lists every sink name in display order.
var KnownSinks = []string{SinkTelegram, SinkTelegramLog, SinkFacebook, SinkS3, SinkGCS, SinkSFTP, SinkDirectory}

const (
	defaultConfigPath       = "~/.config/relay/config.toml"
	defaultWorkDir          = "~/.local/share/relay/work"
	defaultStateDir         = "~/.local/share/relay"
	defaultLogDir           = "~/.local/share/relay/logs"
	defaultQueueFile        = "~/.local/share/relay/videos.txt"
	defaultQueueBackupName  = "videos_backup.txt"
	defaultFetchBinary      = "yt-dlp"
	defaultFormatCap        = 720
	defaultSocketTimeout    = 30
	defaultFetchTimeout     = 3600
	defaultRefetchMargin    = 2.0
	defaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultBrandOpacity     = 200
	defaultBrandFontSize    = 13
	defaultBrandPreset      = "ultrafast"
	defaultEncodeTimeout    = 3600
	defaultFitCRF           = 30
	defaultFitPreset        = "veryfast"
	defaultFitAudioBitrate  = "128k"
	defaultConnectTimeout   = 30
	defaultReadTimeout      = 60
	defaultWriteTimeout     = 60
	defaultTimeoutStepMB    = 50
	defaultTimeoutMaxMult   = 10
	defaultTelegramAPIBase  = "https://api.telegram.org"
	defaultTelegramCeiling  = 50
	defaultGraphBase        = "https://graph.facebook.com/v18.0"
	defaultFacebookCeiling  = 1024
	defaultSFTPPort         = 22
	defaultCooldownSeconds  = 3600
	defaultCountdownSeconds = 30
	defaultCountdownBurst   = 5
	defaultSkipAckSeconds   = 2
	defaultCleanupRetryMS   = 1000
	defaultStaleAfterHours  = 24
	defaultRemoteStream     = "relay:control"
	defaultLogFormat        = "console"
	defaultLogFileFormat    = "json"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Fetch: Fetch{
			Binary:        defaultFetchBinary,
			FormatCap:     defaultFormatCap,
			SocketTimeout: defaultSocketTimeout,
			UserAgent:     defaultUserAgent,
			RefetchMargin: defaultRefetchMargin,
			Timeout:       defaultFetchTimeout,
		},
		Brand: Brand{
			FontSize: defaultBrandFontSize,
			Opacity:  defaultBrandOpacity,
			Preset:   defaultBrandPreset,
			Scroll:   true,
			Timeout:  defaultEncodeTimeout,
		},
		Fit: Fit{
			CRF:          defaultFitCRF,
			Preset:       defaultFitPreset,
			AudioBitrate: defaultFitAudioBitrate,
			Timeout:      defaultEncodeTimeout,
		},
		Deliver: Deliver{
			Primary:              SinkTelegram,
			ConnectTimeout:       defaultConnectTimeout,
			ReadTimeout:          defaultReadTimeout,
			WriteTimeout:         defaultWriteTimeout,
			TimeoutStepMB:        defaultTimeoutStepMB,
			TimeoutMaxMultiplier: defaultTimeoutMaxMult,
		},
		Telegram: Telegram{
			APIBase:   defaultTelegramAPIBase,
			CeilingMB: defaultTelegramCeiling,
		},
		Facebook: Facebook{
			GraphBase: defaultGraphBase,
			CeilingMB: defaultFacebookCeiling,
		},
		SFTP: SFTP{Port: defaultSFTPPort},
		Queue: Queue{
			File: defaultQueueFile,
		},
		Batch: Batch{
			CooldownSeconds:          defaultCooldownSeconds,
			CountdownIntervalSeconds: defaultCountdownSeconds,
			CountdownBurstSeconds:    defaultCountdownBurst,
			SkipAckSeconds:           defaultSkipAckSeconds,
			AutoStart:                true,
		},
		Cleanup: Cleanup{
			RetryDelayMillis: defaultCleanupRetryMS,
			StaleAfterHours:  defaultStaleAfterHours,
		},
		Remote: Remote{
			Stream: defaultRemoteStream,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			ItemSuccess:    true,
			ItemFailure:    true,
			Batch:          true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			FileFormat:    defaultLogFileFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
		},
	}
}
