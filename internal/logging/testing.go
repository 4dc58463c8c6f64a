package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry for assertions.
type TestLogger struct {
	*zap.Logger
	observed *observer.ObservedLogs
}

func NewTestLogger() *TestLogger {
	core, observed := observer.New(zapcore.DebugLevel)
	return &TestLogger{Logger: zap.New(core), observed: observed}
}

func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// AssertLogged verifies a log at level containing message was logged.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, t.observed.All())
}

func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			tb.Errorf("unexpected log at %v containing %q", level, msgContains)
		}
	}
}

// AssertField verifies a field with key and value exists in message.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessage(msg).All() {
		if v, ok := entry.ContextMap()[key]; ok && v == expected {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}
