package app

import "github.com/peacelink/peacelink/internal/auth"

// JWTServiceConfig adapts the auth section to the JWT service configuration.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	cfg := auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: c.JWT.TTL,
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	return cfg
}
