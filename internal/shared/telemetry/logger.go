package telemetry

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure sets the minimum level. Unknown levels leave the current level untouched.
func Configure(level string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	logger.SetLevel(lvl)
}

// SetOutput redirects log output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := logger.Out
	logger.SetOutput(w)
	return prev
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(logrus.InfoLevel, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(logrus.WarnLevel, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(logrus.ErrorLevel, msg, fields)
}

func write(level logrus.Level, msg string, fields map[string]any) {
	mu.RLock()
	defer mu.RUnlock()
	logger.WithFields(logrus.Fields(fields)).Log(level, msg)
}
