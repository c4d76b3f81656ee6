package config

import (
	"os"

	"github.com/phuslu/log"
)

// InitLogger configures the global logger from LOG_LEVEL and LOG_FORMAT.
func InitLogger(c Config) {
	logger := log.Logger{
		Level:      log.ParseLevel(c.LogLevel),
		TimeFormat: "15:04:05.000",
	}
	if c.LogFormat == "json" {
		logger.Writer = &log.IOWriter{Writer: os.Stderr}
	} else {
		logger.Writer = &log.ConsoleWriter{ColorOutput: true, EndWithMessage: true}
	}
	log.DefaultLogger = logger
}
