package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDir      = "log"
	logFilename = "bitcoinswitch.log"
)

var Logger zerolog.Logger
var HttpLogger zerolog.Logger
var logFilePath string

func init() {
	// usable before Init is called (tests, early startup errors)
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().
		Timestamp().
		Logger()
	HttpLogger = zerolog.New(io.Discard)
}

// Init configures the global loggers. logLevel accepts the numeric scale used in
// LOG_LEVEL (0=panic ... 4=info, 5=debug, 6=trace) or a zerolog level name.
func Init(logLevel string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
	}

	level := ParseLevel(logLevel)
	zerolog.SetGlobalLevel(level)

	Logger = zerolog.New(consoleWriter).
		Level(level).
		With().
		Timestamp().
		Logger()

	HttpLogger = zerolog.New(io.Discard).
		Level(level).
		With().
		Timestamp().
		Logger()

	if level <= zerolog.DebugLevel {
		Logger = Logger.With().Caller().Logger()
		Logger.Debug().Msg("caller reporting enabled in debug mode")
	}
}

// ParseLevel maps LOG_LEVEL to a zerolog level. Unknown values fall back to info.
func ParseLevel(logLevel string) zerolog.Level {
	if numeric, err := strconv.Atoi(logLevel); err == nil {
		switch numeric {
		case 6:
			return zerolog.TraceLevel
		case 5:
			return zerolog.DebugLevel
		case 4:
			return zerolog.InfoLevel
		case 3:
			return zerolog.WarnLevel
		case 2:
			return zerolog.ErrorLevel
		case 1:
			return zerolog.FatalLevel
		case 0:
			return zerolog.PanicLevel
		default:
			return zerolog.InfoLevel
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// AddFileLogger tees the application log into a rotated file under workdir and
// routes the HTTP request log there as well.
func AddFileLogger(workdir string) error {
	logFilePath = filepath.Join(workdir, logDir, logFilename)
	fileLogger := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    20,
		MaxAge:     7,
		MaxBackups: 3,
	}

	level := Logger.GetLevel()
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(consoleWriter, fileLogger)).
		Level(level).
		With().
		Timestamp().
		Logger()

	HttpLogger = zerolog.New(fileLogger).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

func GetLogFilePath() string {
	return logFilePath
}
