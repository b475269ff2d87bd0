package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes" validate:"gte=0"`
}

// DatabaseConfig holds the settings of one connection (foottraffic.adapter.database.<name>).
type DatabaseConfig struct {
	Type     string     `yaml:"type" validate:"required,oneof=sqlite postgres mysql"`
	Host     string     `yaml:"host" validate:"required_unless=Type sqlite"`
	Port     int        `yaml:"port"`
	Database string     `yaml:"database" validate:"required"` // Database name, or the file path (":memory:" allowed) for sqlite.
	User     string     `yaml:"user"`
	Password string     `yaml:"password"`
	Schema   string     `yaml:"schema,omitempty"` // PostgreSQL search_path.
	Sslmode  string     `yaml:"sslmode"`
	Pool     PoolConfig `yaml:"pool"`
}
