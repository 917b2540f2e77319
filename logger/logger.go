package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the configuration options for the logger
type Config struct {
	// LogLevel sets the minimum enabled logging level. Valid levels are
	// "debug", "info", "warning" and "error".
	LogLevel string

	// LogFile is the path of the rotated log file. Empty disables file output.
	LogFile string

	// LogFileSize is the maximum size in megabytes of the log file before it gets
	// rotated. It defaults to 10 megabytes.
	LogFileSize int

	// LogFileCount is the maximum number of old log files to retain.
	// The default is 5.
	LogFileCount uint8

	// LogCompress determines if the rotated log files should be compressed
	// using gzip.
	LogCompress bool

	// LogColorize enables console output with colors
	LogColorize bool

	// TimeFormat sets the format for timestamp in logs. Valid formats are
	// "rfc3339", "iso8601", "rfc1123" or a Go layout. The default is RFC3339.
	TimeFormat string

	// LogToFileOnly disables logging to stdout.
	LogToFileOnly bool

	LogZeroValues bool
}

const (
	StrDebug    = "debug"
	StrInfo     = "info"
	StrWarn     = "warn"
	StrError    = "error"
	StrFatal    = "fatal"
	StrRunID    = "run_id"
	StrTable    = "table"
	StrStage    = "stage"
	StrCount    = "count"
	StrCategory = "category"
)

var (
	log           = zerolog.New(os.Stdout).With().Timestamp().Logger()
	logZeroValues bool
	timeFormat    = time.RFC3339Nano
)

// InitLogger initializes the global logger based on the provided Config.
// It sets the log level, output format and rotation options.
func InitLogger(config Config) {
	if config.LogFileSize == 0 {
		config.LogFileSize = 10
	}
	if config.LogFileCount == 0 {
		config.LogFileCount = 5
	}
	logZeroValues = config.LogZeroValues
	switch config.TimeFormat {
	case "rfc3339", "":
		timeFormat = time.RFC3339Nano
	case "iso8601":
		timeFormat = "2006-01-02T15:04:05.000Z0700"
	case "rfc1123":
		timeFormat = time.RFC1123
	default:
		timeFormat = config.TimeFormat
	}
	zerolog.TimeFieldFormat = timeFormat

	level := parseLevel(config.LogLevel)

	var writers []io.Writer
	if !config.LogToFileOnly || config.LogFile == "" {
		if config.LogColorize {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat})
		} else {
			writers = append(writers, os.Stdout)
		}
	}
	if config.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    config.LogFileSize, // megabytes
			MaxBackups: int(config.LogFileCount),
			MaxAge:     28, //days
			Compress:   config.LogCompress,
		})
	}

	logctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp()
	if level == zerolog.DebugLevel {
		log = logctx.Caller().Logger()
	} else {
		log = logctx.Logger()
	}
}

func parseLevel(lvl string) zerolog.Level {
	switch {
	case strings.EqualFold(lvl, StrDebug):
		return zerolog.DebugLevel
	case strings.EqualFold(lvl, "warning"), strings.EqualFold(lvl, StrWarn):
		return zerolog.WarnLevel
	case strings.EqualFold(lvl, StrError):
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetOutput replaces the global logger with one writing JSON lines to w.
func SetOutput(w io.Writer) {
	log = zerolog.New(w).With().Timestamp().Logger()
}

// WithField attaches a string field to every following log line, e.g. the run id.
func WithField(key, value string) {
	log = log.With().Str(key, value).Logger()
}

// LogDynamicany logs a message with dynamic fields. The 'typev' parameter specifies the log level (info, debug, error, fatal, warn). The 'fields' parameter is a variadic list of key-value pairs; an error value is logged without a key.
func LogDynamicany(typev string, msg string, fields ...any) {
	logv := logtype(typev)
	if logv == nil {
		return
	}

	var n string
	for i := range fields {
		switch tt := fields[i].(type) {
		case string:
			if n == "" {
				n = tt
			} else {
				if logZeroValues || tt != "" {
					logv.Str(n, tt)
				}
				n = ""
			}
		case *string:
			if n != "" {
				if tt != nil && (logZeroValues || *tt != "") {
					logv.Str(n, *tt)
				}
				n = ""
			}
		case int:
			if n != "" {
				if logZeroValues || tt != 0 {
					logv.Int(n, tt)
				}
				n = ""
			}
		case int32:
			if n != "" {
				if logZeroValues || tt != 0 {
					logv.Int32(n, tt)
				}
				n = ""
			}
		case int64:
			if n != "" {
				if logZeroValues || tt != 0 {
					logv.Int64(n, tt)
				}
				n = ""
			}
		case uint:
			if n != "" {
				if logZeroValues || tt != 0 {
					logv.Uint(n, tt)
				}
				n = ""
			}
		case bool:
			if n != "" {
				logv.Bool(n, tt)
				n = ""
			}
		case float64:
			if n != "" {
				if logZeroValues || tt != 0 {
					logv.Float64(n, tt)
				}
				n = ""
			}
		case float32:
			if n != "" {
				if logZeroValues || tt != 0 {
					logv.Float32(n, tt)
				}
				n = ""
			}
		case time.Duration:
			if n != "" {
				logv.Str(n, tt.Round(time.Millisecond).String())
				n = ""
			}
		case error:
			logv.Err(tt)
			n = ""
		case []string:
			if n != "" {
				if logZeroValues || len(tt) != 0 {
					logv.Strs(n, tt)
				}
				n = ""
			}
		case nil:
			n = ""
		default:
			if n != "" {
				logv.Any(n, tt)
				n = ""
			}
		}
	}
	logv.Msg(msg)
}

func logtype(typev string) *zerolog.Event {
	switch typev {
	case StrDebug:
		return log.Debug()
	case StrError:
		return log.Error()
	case StrFatal:
		return log.Fatal()
	case StrWarn:
		return log.Warn()
	default:
		return log.Info()
	}
}
