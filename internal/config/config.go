package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"3001"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SwishAPIURL string `env:"SWISH_API_URL,required"`
	PayeeAlias  string `env:"SWISH_PAYEE_ALIAS,required"`
	CallbackURL string `env:"SWISH_CALLBACK_URL"`

	CertPEM            string `env:"SWISH_CERT"`
	KeyPEM             string `env:"SWISH_KEY"`
	CertBase64         string `env:"SWISH_CERT_BASE64"`
	KeyBase64          string `env:"SWISH_KEY_BASE64"`
	InsecureSkipVerify bool   `env:"SWISH_INSECURE_SKIP_VERIFY" envDefault:"false"`

	Currency        string `env:"CURRENCY" envDefault:"SEK"`
	PaymentMessage  string `env:"PAYMENT_MESSAGE" envDefault:"Payment to Yumplee"`
	ReferencePrefix string `env:"REFERENCE_PREFIX" envDefault:"YMP"`

	CancelAfterS     int `env:"CANCEL_AFTER_S" envDefault:"60"`
	ProviderTimeoutS int `env:"PROVIDER_TIMEOUT_S" envDefault:"10"`

	DatabaseURL        string `env:"DATABASE_URL"`
	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int    `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) CancelAfter() time.Duration {
	return time.Duration(c.CancelAfterS) * time.Second
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutS) * time.Second
}
