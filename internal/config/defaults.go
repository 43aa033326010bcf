package config

const (
	defaultDataDir              = "~/.local/share/qcflow"
	defaultLogDir               = "~/.local/share/qcflow/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNotifyRequestTimeout = 10
)

var defaultQualityRoles = []string{"quality_manager", "admin"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			QualityRoles:   append([]string{}, defaultQualityRoles...),
			RequestTimeout: defaultNotifyRequestTimeout,
		},
	}
}
