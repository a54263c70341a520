// Package wire assembles the process-wide App from configuration and a
// logger, following the teacher's google/wire-based dependency injection
// convention (a provider set plus a hand-authored wire_gen.go standing in
// for `wire gen`'s generated output).
package wire

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/wire"

	"github.com/sevigo/coderag/internal/app"
	"github.com/sevigo/coderag/internal/config"
	"github.com/sevigo/coderag/internal/logger"
)

// AppSet is the full provider set for InitializeApp.
var AppSet = wire.NewSet(
	app.New,
	config.LoadConfig,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter() io.Writer {
	return os.Stdout
}

func provideSlogLogger(loggerCfg logger.Config, writer io.Writer) *slog.Logger {
	l := logger.NewLogger(loggerCfg, writer)
	slog.SetDefault(l)
	return l
}
