package auth

// Config configures the auth module.
type Config struct {
	// Enabled toggles API key enforcement on POST /classify. Disabled by
	// default so the scheduler/fanout contract is testable without it.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// DBPath is the path to the SQLite database file holding api_keys.
	// Use ":memory:" for an ephemeral, process-local key store.
	DBPath string `env:"DB_PATH" envDefault:"classify-gateway-auth.db"`
}
