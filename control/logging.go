// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// Structured logging setup (C10), built on logrus the same way the rest of
// this codebase's ambient stack is.

package control

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a JSON-formatted logrus logger at the given level
// ("debug", "info", "warn", "error"; defaults to "info" on an empty or
// unrecognized value).
func NewLogger(level string) logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
