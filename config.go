package remito

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Config is the runtime configuration read from REMITO_* variables.
type Config struct {
	DSN            string        `env:"REMITO_DSN" envDefault:"file:remito.db?cache=shared"`
	HTTPAddr       string        `env:"REMITO_HTTP_ADDR" envDefault:":8080"`
	SigningKey     string        `env:"REMITO_SIGNING_KEY"`
	SessionTTL     time.Duration `env:"REMITO_SESSION_TTL" envDefault:"8h"`
	Issuer         string        `env:"REMITO_ISSUER" envDefault:"remito"`
	CookieName     string        `env:"REMITO_COOKIE_NAME" envDefault:"remito_session"`
	CacheCapacity  int           `env:"REMITO_CACHE_CAPACITY" envDefault:"1000"`
	CacheTTL       time.Duration `env:"REMITO_CACHE_TTL" envDefault:"5m"`
	AuditQueue     int           `env:"REMITO_AUDIT_QUEUE" envDefault:"256"`
	LogLevel       string        `env:"REMITO_LOG_LEVEL" envDefault:"info"`
	BootstrapEmail string        `env:"REMITO_BOOTSTRAP_EMAIL"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SessionTTL, validation.Required),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.CacheCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.AuditQueue, validation.Required, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
	)
	if err != nil {
		return raise(ErrInvalidInput, "invalid configuration", map[string]any{"fields": err.Error()})
	}
	return nil
}

func (c Config) GetSigningKey() []byte {
	return []byte(c.SigningKey)
}

func (c Config) GetSessionTTL() time.Duration {
	return c.SessionTTL
}

func (c Config) GetIssuer() string {
	return c.Issuer
}

func (c Config) GetCookieName() string {
	return c.CookieName
}
