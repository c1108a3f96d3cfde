package config

const (
	defaultWorkDir            = "~/.local/share/adrescue/work"
	defaultLogDir             = "~/.local/share/adrescue/logs"
	defaultCredentialsDir     = "~/.config/adrescue/credentials"
	defaultFeedHeaderRows     = 5
	defaultDisapprovedValue   = "不承認"
	defaultComposerBinary     = "ffmpeg"
	defaultComposerTimeout    = 600
	defaultMainScale          = 0.8
	defaultDisclaimerText     = "※結果には個人差があり成果を保証するものではありません"
	defaultComposeDuration    = 5
	defaultComposeStyle       = "auto"
	defaultUploaderTimeout    = 300
	defaultUploadVisibility   = "unlisted"
	defaultItemDelaySeconds   = 5
	defaultWatchInterval      = 60
	defaultErrorRetrySeconds  = 60
	defaultMinFreeDiskGiB     = 2
	defaultNtfyRequestTimeout = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:        defaultWorkDir,
			LogDir:         defaultLogDir,
			CredentialsDir: defaultCredentialsDir,
		},
		Feed: Feed{
			HeaderRows:       defaultFeedHeaderRows,
			DisapprovedValue: defaultDisapprovedValue,
		},
		Composer: Composer{
			Binary:          defaultComposerBinary,
			TimeoutSeconds:  defaultComposerTimeout,
			MainScale:       defaultMainScale,
			DisclaimerText:  defaultDisclaimerText,
			DurationSeconds: defaultComposeDuration,
			Style:           defaultComposeStyle,
		},
		Uploader: Uploader{
			TimeoutSeconds: defaultUploaderTimeout,
			Visibility:     defaultUploadVisibility,
		},
		Workflow: Workflow{
			ItemDelaySeconds:     defaultItemDelaySeconds,
			WatchIntervalSeconds: defaultWatchInterval,
			ErrorRetrySeconds:    defaultErrorRetrySeconds,
			MinFreeDiskGiB:       defaultMinFreeDiskGiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
