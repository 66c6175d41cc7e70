package logger

import (
	"github.com/sirupsen/logrus"
)

// Log is the shared logger instance for the whole service.
var Log *logrus.Logger

func init() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// SetLevel parses a textual level ("debug", "info", "warn", "error") and
// applies it. Unknown values keep the current level.
func SetLevel(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("Unknown LOG_LEVEL %q, keeping %s", level, Log.GetLevel())
		return
	}
	Log.SetLevel(parsed)
}
