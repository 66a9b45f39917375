// Package config содержит логику чтения конфигурации сервиса FORMA+.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const defaultRunAddress = "localhost:4100"

// Config содержит параметры конфигурации сервиса FORMA+.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	JWTSecret   string `env:"JWT_SECRET"`
	CookieName  string `env:"COOKIE_NAME" envDefault:"access_token"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	WebOrigins  string `env:"WEB_ORIGINS" envDefault:"http://localhost:3000,http://localhost:3001,http://127.0.0.1:3000,http://127.0.0.1:3001"`
}

// Production сообщает, запущен ли сервис в боевом окружении.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// AllowedOrigins возвращает список разрешённых для CORS источников.
func (c *Config) AllowedOrigins() []string {
	var res []string
	for _, o := range strings.Split(c.WebOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			res = append(res, o)
		}
	}
	return res
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing access tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}

	return cfg, nil
}
