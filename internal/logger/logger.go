// Package logger configures the process-wide logrus logger.
package logger

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup applies level and format to the standard logrus logger and returns it.
// Unknown levels fall back to info. Format "json" switches to the JSON
// formatter; anything else keeps the text formatter with full timestamps.
func Setup(level, format string) *log.Logger {
	logger := log.StandardLogger()
	logger.SetOutput(os.Stdout)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}
