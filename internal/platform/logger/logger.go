package logger

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Logger is the logging surface handed to services and stores so tests can
// swap in a buffer-backed or silent implementation.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
	WithField(key string, value interface{}) *log.Entry
	WithFields(fields log.Fields) *log.Entry
	Writer() io.Writer
	SetWriter(io.Writer)
}

type logger struct {
	*log.Logger
}

// New returns a logrus-backed Logger. Unknown levels fall back to info and
// any format other than "text" produces JSON lines.
func New(level, format string) Logger {
	l := log.New()
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = log.InfoLevel
	}
	l.SetLevel(parsed)
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		l.Formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
	} else {
		l.Formatter = &log.JSONFormatter{}
	}
	return &logger{l}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	l := log.New()
	l.Out = io.Discard
	return &logger{l}
}

func (l *logger) Writer() io.Writer {
	return l.Out
}

func (l *logger) SetWriter(writer io.Writer) {
	l.Out = writer
}
