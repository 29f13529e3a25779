package devdb

import (
	"fmt"
	"net/url"
	"time"
)

// Config describes the throwaway PostgreSQL container.
type Config struct {
	// Image is the PostgreSQL image to run.
	Image    string
	User     string
	Password string
	Database string
	// HostIP is the host interface the container port is bound to. The host
	// port itself is picked by Docker.
	HostIP string
	// StartupTimeout bounds the wait for the server to accept connections.
	StartupTimeout time.Duration
	// MemoryLimit is the container memory limit in bytes. Zero means none.
	MemoryLimit int64
}

// DefaultConfig returns settings for a small local development database.
func DefaultConfig() Config {
	return Config{
		Image:          "postgres:16-alpine",
		User:           "blogpost",
		Password:       "blogpost",
		Database:       "blogpost",
		HostIP:         "127.0.0.1",
		StartupTimeout: 60 * time.Second,
		MemoryLimit:    256 * 1024 * 1024,
	}
}

// DSN builds a postgres:// connection string for the given host port.
func (c Config) DSN(hostPort string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.HostIP + ":" + hostPort,
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c Config) env() []string {
	return []string{
		fmt.Sprintf("POSTGRES_USER=%s", c.User),
		fmt.Sprintf("POSTGRES_PASSWORD=%s", c.Password),
		fmt.Sprintf("POSTGRES_DB=%s", c.Database),
	}
}
