package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35

	colorBold = 1
)

func SetConsoleWriter() {
	log = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.FormatLevel = consoleFormatLevel(false)
		w.TimeFormat = "15:04:05.000"
	}))
}

func SetJsonWriter() {
	log = zerolog.New(os.Stderr)
}

// SetFormat switches between the "console" and "json" writers.
func SetFormat(format string) {
	if strings.EqualFold(format, "json") {
		SetJsonWriter()
		return
	}
	SetConsoleWriter()
}

func colorize(s interface{}, c int, disabled bool) string {
	if disabled {
		return fmt.Sprintf("%s", s)
	}
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

// consoleFormatLevel renders the GCP severity names as three letter tags.
func consoleFormatLevel(noColor bool) zerolog.Formatter {
	return func(i interface{}) string {
		ll, ok := i.(string)
		if !ok {
			return colorize("???", colorBold, noColor)
		}
		switch strings.ToLower(ll) {
		case "default", "trace":
			return colorize("TRC", colorMagenta, noColor)
		case "debug":
			return colorize("DBG", colorYellow, noColor)
		case "notice":
			return colorize("NOT", colorYellow, noColor)
		case "info":
			return colorize("INF", colorGreen, noColor)
		case "warn":
			return colorize("WRN", colorRed, noColor)
		case "error":
			return colorize(colorize("ERR", colorRed, noColor), colorBold, noColor)
		case "critical", "emergency":
			return colorize(colorize("FTL", colorRed, noColor), colorBold, noColor)
		default:
			if len(ll) >= 3 {
				return strings.ToUpper(ll[:3])
			}
			return colorize("???", colorBold, noColor)
		}
	}
}
