package sge

import "time"

// Config holds gateway options
type Config interface {
	// GetAuthorityURL is the base URL of the remote authentication
	// endpoint, e.g. https://sge.example.gov.br/api
	GetAuthorityURL() string
	GetSigningKey() string
	GetIssuer() string
	GetLoginTimeout() time.Duration
	GetRegisterTimeout() time.Duration
	// GetFallbackCredentials enumerates the only accounts the
	// degraded offline path will ever resolve.
	GetFallbackCredentials() []FallbackCredential
}

// FallbackCredential is one entry of the offline allow-list. The
// resolved identity is always a manager, mirroring the demo accounts
// the program ships with.
type FallbackCredential struct {
	Email    string
	Password string
	Name     string
}

// DefaultFallbackCredentials returns the built-in demo allow-list.
func DefaultFallbackCredentials() []FallbackCredential {
	return []FallbackCredential{
		{Email: "admin@sge.gov.br", Password: "SGE@Admin2024!", Name: "Administrador Sistema"},
		{Email: "test@sge.gov.br", Password: "Test123!", Name: "Usuário Teste"},
	}
}

// GatewayConfig is a plain-struct Config implementation.
type GatewayConfig struct {
	AuthorityURL        string
	SigningKey          string
	Issuer              string
	LoginTimeout        time.Duration
	RegisterTimeout     time.Duration
	FallbackCredentials []FallbackCredential
}

var _ Config = (*GatewayConfig)(nil)

func (c *GatewayConfig) GetAuthorityURL() string { return c.AuthorityURL }
func (c *GatewayConfig) GetSigningKey() string   { return c.SigningKey }

func (c *GatewayConfig) GetIssuer() string {
	if c.Issuer == "" {
		return "sge"
	}
	return c.Issuer
}

func (c *GatewayConfig) GetLoginTimeout() time.Duration {
	if c.LoginTimeout <= 0 {
		return 10 * time.Second
	}
	return c.LoginTimeout
}

func (c *GatewayConfig) GetRegisterTimeout() time.Duration {
	if c.RegisterTimeout <= 0 {
		return 5 * time.Second
	}
	return c.RegisterTimeout
}

func (c *GatewayConfig) GetFallbackCredentials() []FallbackCredential {
	if c.FallbackCredentials == nil {
		return DefaultFallbackCredentials()
	}
	return c.FallbackCredentials
}
