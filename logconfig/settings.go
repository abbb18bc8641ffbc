package logconfig

import (
	"fmt"
	"io"
	"os"
	"strings"

	myLogger "github.com/sirupsen/logrus"
)

// LevelSilent is accepted on top of the logrus levels and discards every entry.
const LevelSilent = "silent"

// ValidateLevel reports whether level is a logrus level or "silent".
func ValidateLevel(level string) error {
	if strings.EqualFold(level, LevelSilent) {
		return nil
	}
	if _, err := myLogger.ParseLevel(level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return nil
}

// NewLogger builds a dedicated logger for an agent.
// Production environments log JSON, everything else text.
func NewLogger(level string, production bool) (*myLogger.Logger, error) {
	l := myLogger.New()
	if err := configure(l, level, production); err != nil {
		return nil, err
	}
	return l, nil
}

// ConfigGlobalLogger applies the same rules to the package level logger, which
// the cli uses before an agent has its own.
func ConfigGlobalLogger(level string, production bool) error {
	return configure(myLogger.StandardLogger(), level, production)
}

func configure(l *myLogger.Logger, level string, production bool) error {
	if strings.EqualFold(level, LevelSilent) {
		l.SetOutput(io.Discard)
		l.SetLevel(myLogger.PanicLevel)
		return nil
	}

	lvl, err := myLogger.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetOutput(os.Stdout)
	l.SetLevel(lvl)

	if production {
		l.SetFormatter(&myLogger.JSONFormatter{})
	} else {
		l.SetFormatter(&myLogger.TextFormatter{
			DisableLevelTruncation: true,
			PadLevelText:           true,
			FullTimestamp:          true,
		})
	}
	return nil
}

// NewSilentEntry is a convenience for tests.
func NewSilentEntry(module string) *myLogger.Entry {
	l, _ := NewLogger(LevelSilent, false)
	return l.WithField("module", module)
}
