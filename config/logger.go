package config

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. Release mode logs JSON at info,
// other modes log text at debug. LOG_LEVEL overrides the level when set.
func NewLogger(c *Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(new(logrus.JSONFormatter))
	logger.SetLevel(logrus.InfoLevel)

	if c.GinMode != gin.ReleaseMode {
		logger.SetFormatter(new(logrus.TextFormatter))
		logger.SetLevel(logrus.DebugLevel)
	}

	if c.LogLevel != "" {
		if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
			logger.SetLevel(lvl)
		}
	}

	return logger
}
