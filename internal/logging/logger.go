package logging

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", FormatConsole, FormatJSON:
		return nil
	}
	return fmt.Errorf("logging.format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Format)
}

// ParseLevel accepts zap level names; the empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// New builds a logger writing to w.
func New(cfg Config, w io.Writer) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	lvl, _ := ParseLevel(cfg.Level)
	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == FormatJSON {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}

// Sync flushes l, ignoring the harmless errors from syncing a terminal.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
