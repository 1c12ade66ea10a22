package observability

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	config "github.com/shopstack/auth-service/configs"
)

// NewLogger builds the process logger: JSON by default, text when
// LOG_FORMAT=text, info level unless LOG_LEVEL parses.
func NewLogger(cfg *config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}
