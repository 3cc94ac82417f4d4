// Package logging defines the logging contract used across the composer and
// the module-scoped helpers built on it.
package logging

import (
	"context"
	"maps"
)

// Logger is the structured logging contract. Args are key/value pairs.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger is implemented by loggers that accept structured fields.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}

// Provider hands out named loggers.
type Provider interface {
	GetLogger(name string) Logger
}

const (
	rootModule     = "composer"
	commandModule  = "composer.command"
	historyModule  = "composer.history"
	sessionModule  = "composer.session"
	autosaveModule = "composer.autosave"
	storeModule    = "composer.store"
)

// ModuleLogger returns a logger tagged with a "module" field. It falls back
// to NoOp when provider is nil.
func ModuleLogger(provider Provider, module string) Logger {
	if module == "" {
		module = rootModule
	}
	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

func CommandLogger(provider Provider) Logger  { return ModuleLogger(provider, commandModule) }
func HistoryLogger(provider Provider) Logger  { return ModuleLogger(provider, historyModule) }
func SessionLogger(provider Provider) Logger  { return ModuleLogger(provider, sessionModule) }
func AutosaveLogger(provider Provider) Logger { return ModuleLogger(provider, autosaveModule) }
func StoreLogger(provider Provider) Logger    { return ModuleLogger(provider, storeModule) }

// WithFields attaches fields when the logger supports them. A nil logger or
// an empty map returns logger unchanged.
func WithFields(logger Logger, fields map[string]any) Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if fl, ok := logger.(FieldsLogger); ok {
		return fl.WithFields(maps.Clone(fields))
	}
	return logger
}

// OrNoOp returns logger, or NoOp when it is nil.
func OrNoOp(logger Logger) Logger {
	if logger == nil {
		return NoOp()
	}
	return logger
}

// NoOp returns a logger that drops every entry.
func NoOp() Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) Logger { return n }

func (n noopLogger) WithContext(context.Context) Logger { return n }
