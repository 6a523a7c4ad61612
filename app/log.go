package app

import (
	"fmt"

	"github.com/moontrade/orderflow/logger"
)

func logInit(conf Config) error {
	if err := logger.SetLevel(conf.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch conf.LogFormat {
	case "console", "json":
		logger.SetFormat(conf.LogFormat)
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, conf.LogFormat)
	}
	logger.Warn("starting %s", Versline(conf))
	return nil
}
