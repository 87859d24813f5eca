package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME"`
}

// CollaboratorsConfig points at the external services the ledger calls
// out to: the chain minting service, the registration service, and the
// promo code service.
type CollaboratorsConfig struct {
	MintBaseURL     string        `env:"MINT_BASE_URL"`
	RegistryBaseURL string        `env:"REGISTRY_BASE_URL"`
	PromoBaseURL    string        `env:"PROMO_BASE_URL"`
	ClientTimeout   time.Duration `env:"CLIENT_TIMEOUT"`
}
