package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Category loggers keep operational noise separable: application lifecycle,
// Discord traffic, and storage I/O each carry their own component attribute
// while sharing one handler and one rotated file.

var (
	mu       sync.RWMutex
	root     *slog.Logger
	rotator  *lumberjack.Logger
	fallback = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// Setup configures the process-wide logger writing to stdout and a rotated
// file at logPath. Safe to call more than once; the last call wins.
func Setup(logPath string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	rot := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, rot), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	mu.Lock()
	if rotator != nil {
		_ = rotator.Close()
	}
	rotator = rot
	root = slog.New(handler)
	mu.Unlock()
	return nil
}

// Close releases the rotated file handle. Safe to call without Setup.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

func base() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return fallback
	}
	return root
}

// ApplicationLogger returns the logger for process lifecycle events.
func ApplicationLogger() *slog.Logger { return base().With("component", "application") }

// DiscordLogger returns the logger for Discord API traffic and interactions.
func DiscordLogger() *slog.Logger { return base().With("component", "discord") }

// StorageLogger returns the logger for object-storage and audit-store I/O.
func StorageLogger() *slog.Logger { return base().With("component", "storage") }

// ErrorLogger returns the logger used at interaction boundaries when a handler fails.
func ErrorLogger() *slog.Logger { return base().With("component", "error") }
