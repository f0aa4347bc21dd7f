// Package log provides the zap logger shared by the lstid-detect command.
//
// Library packages accept a *zap.SugaredLogger from their caller; only
// cmd/ code should touch the package-level logger held here.
package log

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

var (
	sugar      *zap.SugaredLogger
	baseLogger *zap.Logger
)

// New builds a zap logger without installing it as the package logger.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Init installs the package-level logger. The caller skip keeps file:line
// pointing at the call site of the helpers below.
func Init(debug bool) error {
	zapLogger, err := New(debug)
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %w", err)
	}
	baseLogger = zapLogger.WithOptions(zap.AddCallerSkip(1))
	sugar = baseLogger.Sugar()
	return nil
}

func ensure() {
	if sugar == nil {
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		sugar = baseLogger.Sugar()
	}
}

// GetZapLogger returns the base logger, for bridges such as gorm's logger.
func GetZapLogger() *zap.Logger {
	ensure()
	return baseLogger
}

// GetSugaredLogger returns the sugared package logger.
func GetSugaredLogger() *zap.SugaredLogger {
	ensure()
	return sugar
}

// ForDate tags every entry from l with the analysis date.
func ForDate(l *zap.SugaredLogger, date time.Time) *zap.SugaredLogger {
	return l.With("date", date.Format("2006-01-02"))
}

// Sync flushes any buffered log entries
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}

func Debugf(template string, args ...interface{}) {
	ensure()
	sugar.Debugf(template, args...)
}

func Infof(template string, args ...interface{}) {
	ensure()
	sugar.Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	ensure()
	sugar.Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	ensure()
	sugar.Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	ensure()
	sugar.Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...interface{}) {
	ensure()
	sugar.Errorf(template, args...)
}

func Fatalf(template string, args ...interface{}) {
	ensure()
	sugar.Errorf(template, args...)
	Sync()
	os.Exit(1)
}
