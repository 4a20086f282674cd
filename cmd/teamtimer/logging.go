package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fentz26/teamtimer/internal/config"
)

// newLogger logs JSON to the rotated log file and text to stderr.
func newLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	stderr := slog.NewTextHandler(os.Stderr, opts)
	if cfg.File == "" {
		return slog.New(stderr), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return slog.New(slogmulti.Fanout(slog.NewJSONHandler(rotator, opts), stderr)), rotator, nil
}
