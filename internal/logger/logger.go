// internal/logger/logger.go
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus logger configured for the service.
// Packages keep one as a package-level var (customLog).
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// LOG_LEVEL overrides the default (info). Invalid values fall back silently.
	if lvlStr := os.Getenv("LOG_LEVEL"); lvlStr != "" {
		if lvl, err := logrus.ParseLevel(lvlStr); err == nil {
			log.SetLevel(lvl)
		}
	}

	return log
}
