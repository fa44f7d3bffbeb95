// Package log holds the process wide loggers. The four level loggers keep
// the Printf/Println call style used throughout the code base while the
// output is formatted and filtered by logrus.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger writes at a fixed level.
type Logger struct {
	base  *logrus.Logger
	level logrus.Level
}

func (l *Logger) Printf(format string, args ...interface{}) {
	l.base.Logf(l.level, format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	l.base.Logln(l.level, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.base.Fatalf(format, args...)
}

var (
	base = logrus.New()

	Trace   = &Logger{base, logrus.TraceLevel}
	Info    = &Logger{base, logrus.InfoLevel}
	Warning = &Logger{base, logrus.WarnLevel}
	Error   = &Logger{base, logrus.ErrorLevel}
)

func init() {
	InitLog("", false)
}

// InitLog configures the loggers. Trace output is enabled when trace is
// set or RMDIGIT_TRACE=1, otherwise level selects the minimum level
// ("info" when empty or unparsable).
func InitLog(level string, trace bool) {
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if trace || os.Getenv("RMDIGIT_TRACE") == "1" {
		lvl = logrus.TraceLevel
	}
	base.SetLevel(lvl)
}

// SetOutput redirects every logger.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}
