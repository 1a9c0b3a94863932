package authgate

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is an environment backed Config implementation.
type EnvConfig struct {
	SigningKey             string   `env:"AUTHGATE_SIGNING_KEY,required"`
	SigningMethod          string   `env:"AUTHGATE_SIGNING_METHOD" envDefault:"HS256"`
	TokenExpiration        int      `env:"AUTHGATE_TOKEN_EXPIRATION" envDefault:"24"`
	ConfirmationExpiration int      `env:"AUTHGATE_CONFIRMATION_EXPIRATION" envDefault:"48"`
	Issuer                 string   `env:"AUTHGATE_ISSUER" envDefault:"authgate"`
	Audience               []string `env:"AUTHGATE_AUDIENCE" envSeparator:","`
	DSN                    string   `env:"AUTHGATE_DSN" envDefault:"file::memory:?cache=shared"`
}

// LoadConfig reads configuration from the process environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse auth configuration from environment")
	}
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string          { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string       { return c.SigningMethod }
func (c *EnvConfig) GetTokenExpiration() int        { return c.TokenExpiration }
func (c *EnvConfig) GetConfirmationExpiration() int { return c.ConfirmationExpiration }
func (c *EnvConfig) GetIssuer() string              { return c.Issuer }
func (c *EnvConfig) GetAudience() []string          { return c.Audience }

// GetDSN returns the database connection string for the local identity
// and profile stores.
func (c *EnvConfig) GetDSN() string { return c.DSN }

var _ Config = (*EnvConfig)(nil)
