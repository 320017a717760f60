package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `mapstructure:"enabled"`
	UseConsoleWriter bool `mapstructure:"useConsoleWriter"`
}

// Rotation configures one rolling log file.
type Rotation struct {
	Name       string `mapstructure:"name"`       // file name inside LogFile.Path
	MaxSize    int    `mapstructure:"maxSize"`    // megabytes
	MaxBackups int    `mapstructure:"maxBackups"` // rotated files kept
	MaxAge     int    `mapstructure:"maxAge"`     // days
	Compress   bool   `mapstructure:"compress"`
}

// LogFile implements a file based logger.
type LogFile struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`

	Access Rotation `mapstructure:"access"`
	Error  Rotation `mapstructure:"error"`
	Info   Rotation `mapstructure:"info"`
	Trace  Rotation `mapstructure:"trace"`
	Warn   Rotation `mapstructure:"warn"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string // trace, debug, info, warn, error.
	LogEnv   string

	// EnableAccessLogToConsole if true the webservice access log is written to the console.
	// Does not overrule flag Console.Enabled!
	// If Console.Enabled is false, still no access log output to the console will be shown.
	EnableAccessLogToConsole bool
	ReportCaller             bool
	DisableCheckAlive        bool // do not log /checkalive calls

	AppName     string
	ServiceName string

	// Console used mainly for docker and dev.
	Console Console

	// File based logging.
	File LogFile `mapstructure:"file"`
}
