// Package logger provides context-aware structured logging shared by every
// pipeline stage. Every entry carries the request id pulled from the
// context, if one was attached by the orchestrator.
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.JSONFormatter{})
}

// SetLevel adjusts the base logger's verbosity.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

// WithRequestID attaches a request id to the context so every subsequent
// log call made with it is tagged automatically.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	entry := base.WithField("request_id", requestID)
	return context.WithValue(ctx, ctxKey{}, entry)
}

// GetLogger returns the *logrus.Entry attached to ctx, or the bare base
// logger's entry if none was attached.
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(base)
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	GetLogger(ctx).Errorf(format, args...)
}
