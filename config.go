package auth

import (
	"os"
	"strconv"
	"time"
)

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetCookieName() string
	GetAuthScheme() string
	GetBcryptCost() int
	GetEnvironment() string
}

const (
	// EnvDevelopment enables verbose error responses.
	EnvDevelopment = "development"
	// EnvProduction enables terse error responses and secure cookies.
	EnvProduction = "production"
)

// Options is an immutable Config value. Build it once at process start and
// pass it by reference into every component that needs it.
type Options struct {
	SigningKey      string
	TokenExpiration int // hours
	CookieName      string
	AuthScheme      string
	BcryptCost      int
	Environment     string
}

var _ Config = Options{}

func (o Options) GetSigningKey() string { return o.SigningKey }

func (o Options) GetTokenExpiration() int {
	if o.TokenExpiration <= 0 {
		return 24
	}
	return o.TokenExpiration
}

func (o Options) GetCookieName() string {
	if o.CookieName == "" {
		return "jwt"
	}
	return o.CookieName
}

func (o Options) GetAuthScheme() string {
	if o.AuthScheme == "" {
		return "Bearer"
	}
	return o.AuthScheme
}

func (o Options) GetBcryptCost() int {
	if o.BcryptCost <= 0 {
		return DefaultBcryptCost
	}
	return o.BcryptCost
}

func (o Options) GetEnvironment() string {
	if o.Environment == "" {
		return EnvDevelopment
	}
	return o.Environment
}

// NewOptionsFromEnv reads the process environment once and returns an
// immutable Options value. No other component reads ambient state.
func NewOptionsFromEnv() Options {
	o := Options{
		SigningKey:  os.Getenv("AUTH_SIGNING_KEY"),
		CookieName:  os.Getenv("AUTH_COOKIE_NAME"),
		AuthScheme:  os.Getenv("AUTH_SCHEME"),
		Environment: os.Getenv("APP_ENV"),
	}

	if v, err := strconv.Atoi(os.Getenv("AUTH_TOKEN_EXPIRATION")); err == nil {
		o.TokenExpiration = v
	}

	if v, err := strconv.Atoi(os.Getenv("AUTH_BCRYPT_COST")); err == nil {
		o.BcryptCost = v
	}

	return o
}

// IsProduction reports whether cfg runs with production semantics.
func IsProduction(cfg Config) bool {
	return cfg.GetEnvironment() == EnvProduction
}

// TokenDuration converts the configured token expiration to a duration. The
// session cookie uses the same lifetime.
func TokenDuration(cfg Config) time.Duration {
	return time.Duration(cfg.GetTokenExpiration()) * time.Hour
}
