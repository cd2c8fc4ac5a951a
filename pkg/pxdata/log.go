package pxdata

import "github.com/sirupsen/logrus"

// Logger is the minimal logging surface this package needs. Recoverable
// per-value conditions (unknown type codes, rejected blob attaches) log at
// warning level and never interrupt a dataset fetch.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

var logger Logger = defaultLogger()

func defaultLogger() Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetLogger replaces the package logger.
func SetLogger(l Logger) {
	if l != nil {
		logger = l
	}
}

// GetLogger returns the active package logger.
func GetLogger() Logger {
	return logger
}
