package config

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// DefaultLogLevel is used when neither a config file, the environment nor a
// flag sets one
const DefaultLogLevel = string(LogLevelWarning)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// Format is the encoding of rendered chart frames
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// IsValid returns whether the frame format is supported
func (f Format) IsValid() bool {
	return f == FormatPNG || f == FormatSVG
}

// ContentType returns the HTTP media type of a frame in this format
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}
