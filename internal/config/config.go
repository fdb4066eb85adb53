package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	PostgresConn      string `envconfig:"POSTGRES_CONN"`
	ServerAddress     string `envconfig:"SERVER_ADDRESS" default:"0.0.0.0:8080"`
	MigrationsEnabled bool   `envconfig:"MIGRATIONS_ENABLED" default:"true"`
	ReadTimeoutSec    uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec   uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Повторы транзакций при serialization failure
	TxMaxRetries uint `envconfig:"TX_MAX_RETRIES" default:"3"`

	// Часовой пояс для правила комендантского часа
	CurfewTZ string `envconfig:"CURFEW_TZ" default:"Local"`

	// Если пусто, уведомления пишутся только в БД
	NatsURL string `envconfig:"NATS_URL"`
}

// Load читает конфиг из окружения. prefix может быть пустым.
func Load(prefix string) (*Config, error) {
	c := new(Config)
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.PostgresConn == "" {
		return nil, fmt.Errorf("set POSTGRES_CONN")
	}

	if _, err := c.Location(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.CurfewTZ)
	if err != nil {
		return nil, fmt.Errorf("load curfew timezone %q: %w", c.CurfewTZ, err)
	}
	return loc, nil
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}
