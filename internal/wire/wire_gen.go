// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sevigo/coderag/internal/app"
	"github.com/sevigo/coderag/internal/config"
	"github.com/sevigo/coderag/internal/logger"
)

// InitializeApp creates and wires the process-wide application.
func InitializeApp() (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	loggerCfg := cfg.Logging
	var logWriter io.Writer
	switch loggerCfg.Output {
	case "stderr":
		logWriter = os.Stderr
	case "file":
		f, ferr := os.OpenFile("coderag.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if ferr != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", ferr)
		}
		logWriter = f
	default:
		logWriter = os.Stdout
	}
	slogLogger := logger.NewLogger(loggerCfg, logWriter)
	slog.SetDefault(slogLogger)

	application, cleanup, err := app.New(cfg, slogLogger)
	if err != nil {
		return nil, nil, err
	}
	return application, cleanup, nil
}
