package config

import (
	"fmt"
	"time"
)

// BaseConfig is the application configuration root loaded by go-config.
type BaseConfig struct {
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	Server      Server      `json:"server" koanf:"server"`
	Shelf       Shelf       `json:"shelf" koanf:"shelf"`
}

func (c BaseConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if c.Auth.AdminEmail == "" {
		return fmt.Errorf("auth.admin_email is required")
	}
	return nil
}

func (c BaseConfig) GetAuth() Auth {
	return c.Auth
}

func (c BaseConfig) GetPersistence() Persistence {
	return c.Persistence
}

func (c BaseConfig) GetServer() Server {
	return c.Server
}

func (c BaseConfig) GetShelf() Shelf {
	return c.Shelf
}

// Auth configures tokens, cookies, and the administrator account.
type Auth struct {
	SigningKey      string   `json:"signing_key" koanf:"signing_key"`
	TokenExpiration int      `json:"token_expiration" koanf:"token_expiration"`
	Issuer          string   `json:"issuer" koanf:"issuer"`
	Audience        []string `json:"audience" koanf:"audience"`
	AdminEmail      string   `json:"admin_email" koanf:"admin_email"`
	CookieName      string   `json:"cookie_name" koanf:"cookie_name"`
}

// Persistence configures the database connection and migrations.
type Persistence struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Server                string `json:"server" koanf:"server"`
	Database              string `json:"database" koanf:"database"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}

	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

// Server configures the HTTP listener.
type Server struct {
	Address string `json:"address" koanf:"address"`
	Debug   bool   `json:"debug" koanf:"debug"`
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8572"
	}
	return s.Address
}

func (s Server) GetDebug() bool {
	return s.Debug
}

// Shelf configures the book catalog import.
type Shelf struct {
	ManifestDir string `json:"manifest_dir" koanf:"manifest_dir"`
}

func (s Shelf) GetManifestDir() string {
	if s.ManifestDir == "" {
		return "public/books"
	}
	return s.ManifestDir
}
