package db

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Logger adapts gorm's logger interface to logrus
type Logger struct {
	slow  time.Duration
	level gormlogger.LogLevel
}

// NewLogger returns a gorm logger that reports errors and queries slower than slow
func NewLogger(slow time.Duration) *Logger {
	return &Logger{slow: slow, level: gormlogger.Warn}
}

func (l *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		logrus.WithContext(ctx).Infof(msg, args...)
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		logrus.WithContext(ctx).Warnf(msg, args...)
	}
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		logrus.WithContext(ctx).Errorf(msg, args...)
	}
}

func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		logrus.WithContext(ctx).WithFields(logrus.Fields{"sql": sql, "rows": rows, "elapsed": elapsed}).WithError(err).Error("query failed")
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logrus.WithContext(ctx).WithFields(logrus.Fields{"sql": sql, "rows": rows, "elapsed": elapsed}).Warn("slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logrus.WithContext(ctx).WithFields(logrus.Fields{"sql": sql, "rows": rows, "elapsed": elapsed}).Debug("query")
	}
}
