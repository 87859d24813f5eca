package main

import (
	"log/slog"
	"time"

	"github.com/repaircoin/rcnledger/internal/config"
)

type apiConfig struct {
	Port            string        `env:"APP_PORT"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT"`
	// ProgramFile points at the loyalty program YAML; empty means the
	// built-in defaults.
	ProgramFile string `env:"PROGRAM_FILE"`

	Postgres      config.PostgresConfig
	Collaborators config.CollaboratorsConfig
}
