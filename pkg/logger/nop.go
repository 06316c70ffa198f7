package logger

import "context"

type nopLogger struct{}

// Nop returns a Logger that discards everything. Fatal does not exit.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (nopLogger) Debug(context.Context, string, ...Field) {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Fatal(context.Context, string, ...Field) {}
func (nopLogger) Named(string) Logger                     { return nopLogger{} }

// Default returns the global logger, or a no-op logger before Init.
func Default() Logger {
	if global == nil {
		return Nop()
	}
	return global
}
