//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/sevigo/coderag/internal/app"
)

// InitializeApp builds the process-wide App. wire_gen.go holds a
// hand-authored InitializeApp built from the same constructors; unlike
// AppSet it also validates the config and picks the log writer from
// logging.output, whereas AppSet's provideLogWriter always uses stdout.
func InitializeApp() (*app.App, func(), error) {
	wire.Build(AppSet)
	return &app.App{}, nil, nil
}
