package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	log zerolog.Logger

	DurationAsString = true
	DataFieldName    = "data"
	ErrorsFieldName  = "errors"

	EmptyMessage = ""
)

var ErrUnknownLevel = errors.New("unknown log level")

func Log() *zerolog.Logger {
	return &log
}

// Builder lets callers append fields that the key/value form cannot express.
type Builder func(event *zerolog.Event)

func init() {
	setCallerFormatter()

	// GCP cloud logging severity names
	zerolog.LevelFieldName = "severity"
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		switch l {
		case zerolog.TraceLevel:
			return "DEFAULT"
		case zerolog.DebugLevel:
			return "DEBUG"
		case zerolog.InfoLevel:
			return "INFO"
		case zerolog.NoLevel:
			return "NOTICE"
		case zerolog.WarnLevel:
			return "WARN"
		case zerolog.ErrorLevel:
			return "ERROR"
		case zerolog.PanicLevel:
			return "CRITICAL"
		case zerolog.FatalLevel:
			return "EMERGENCY"
		default:
			return "DEFAULT"
		}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	SetConsoleWriter()
}

func setCallerFormatter() {
	_, file, _, _ := runtime.Caller(0)
	prefix := path.Dir(path.Dir(file))
	if len(prefix) > 0 && prefix[len(prefix)-1] != os.PathSeparator {
		prefix += "/"
	}

	zerolog.CallerMarshalFunc = func(file string, line int) string {
		if index := strings.Index(file, prefix); prefix != "" && index > -1 {
			file = file[index+len(prefix):]
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
}

func SetWriter(w io.Writer) {
	log = zerolog.New(w)
}

func SetLogger(logger zerolog.Logger) {
	log = logger
}

// SetLevel sets the global level by name. "verb" and "verbose" map to trace,
// "quiet" and "silent" disable logging entirely.
func SetLevel(level string) error {
	switch strings.ToLower(level) {
	case "verbose", "verb", "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "notice", "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warning", "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "quiet", "silent":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	return nil
}

// doLog interprets args as: an optional leading error, then key/value pairs.
// A string key containing '%' is a format template for the remaining args and
// a lone trailing string is the message.
func doLog(skip int, event *zerolog.Event, args []interface{}) {
	if event == nil {
		return
	}
	event.Timestamp()
	event.Caller(skip)

	if len(args) == 0 {
		event.Msg(EmptyMessage)
		return
	}
	if err, ok := args[0].(error); ok {
		event.Err(err)
		args = args[1:]
	}

	for i := 0; i < len(args); i++ {
		switch k := args[i].(type) {
		case nil:
			continue
		case string:
			if strings.Contains(k, "%") {
				event.Msgf(k, args[i+1:]...)
				return
			}
			if i+1 == len(args) {
				event.Msg(k)
				return
			}
			appendField(event, k, args[i+1])
			i++
		case error:
			event.Err(k)
		case []error:
			event.Errs(ErrorsFieldName, k)
		case Builder:
			k(event)
		default:
			event.Interface(DataFieldName, k)
		}
	}
	event.Msg(EmptyMessage)
}

func appendField(event *zerolog.Event, k string, value interface{}) {
	switch v := value.(type) {
	case string:
		event.Str(k, v)
	case []string:
		event.Strs(k, v)
	case int:
		event.Int(k, v)
	case int64:
		event.Int64(k, v)
	case uint64:
		event.Uint64(k, v)
	case float64:
		event.Float64(k, v)
	case bool:
		event.Bool(k, v)
	case error:
		event.AnErr(k, v)
	case time.Time:
		event.Time(k, v)
	case time.Duration:
		if DurationAsString {
			event.Str(k, v.String())
		} else {
			event.Dur(k, v)
		}
	case Builder:
		v(event)
	default:
		event.Interface(k, v)
	}
}

func CustomLevel(level string) *zerolog.Event {
	l := log.Level(zerolog.NoLevel)
	return l.Log().Str(zerolog.LevelFieldName, level)
}

// Trace logs a message at level Trace on the standard logger.
func Trace(args ...interface{}) {
	doLog(2, log.Trace(), args)
}

// Debug logs a message at level Debug on the standard logger.
func Debug(args ...interface{}) {
	doLog(2, log.Debug(), args)
}

// Info logs a message at level Info on the standard logger.
func Info(args ...interface{}) {
	doLog(2, log.Info(), args)
}

// Notice logs a message at level Notice on the standard logger.
func Notice(args ...interface{}) {
	doLog(2, CustomLevel("NOTICE"), args)
}

// Warn logs a message at level Warn on the standard logger.
func Warn(args ...interface{}) {
	doLog(2, log.Warn(), args)
}

// WarnErr logs a message with an error at level Warn on the standard logger.
func WarnErr(err error, args ...interface{}) {
	doLog(2, log.Warn().Err(err), args)
}

// Error logs a message at level Error on the standard logger.
func Error(err error, args ...interface{}) {
	doLog(2, log.Error().Err(err), args)
}

// Fatal logs a message at level Fatal on the standard logger then the process will exit with status set to 1.
func Fatal(err error, args ...interface{}) {
	doLog(2, log.Fatal().Err(err), args)
}
