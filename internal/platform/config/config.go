package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config junta toda la configuración del proceso. Se carga una vez en main;
// el resto del código recibe valores ya parseados, nunca lee env vars.
type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// DSN vacío => store en memoria (modo dev).
	DatabaseDSN  string        `env:"DATABASE_DSN"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`

	// Verificador de sesiones. Ambos vacíos => modo dev con headers de debug.
	AuthBaseURL string `env:"AUTH_BASE_URL"`
	AuthAPIKey  string `env:"AUTH_API_KEY"`

	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
