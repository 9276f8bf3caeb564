package internal

import (
	"io"
	"log/slog"

	"github.com/starford/mynotes/internal/backend"
	"github.com/starford/mynotes/internal/storage"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config

	logger *slog.Logger
	store  *storage.FS
	api    backend.API
	closer io.Closer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

func (a *application) close() {
	if a.closer == nil {
		return
	}
	if err := a.closer.Close(); err != nil {
		a.logger.Error("close backend", slog.String("error", err.Error()))
	}
}
