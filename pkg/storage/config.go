package storage

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Supported database dialects.
const (
	DialectSQLite     = "sqlite"
	DialectPostgreSQL = "postgresql"
	DialectMySQL      = "mysql"
	DialectMSSQL      = "mssql"
)

// Config for the database connection
type Config struct {
	// URL, when set, wins over the individual fields below.
	URL string

	Type     string // sqlite, postgresql, mysql, mssql
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string // postgresql only

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:            DialectSQLite,
		Host:            "localhost",
		Name:            "taskforge",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Validate checks that the configuration can produce a DSN
func (c Config) Validate() error {
	if c.URL != "" {
		if _, _, err := c.DSN(); err != nil {
			return err
		}
		return nil
	}

	switch c.Type {
	case DialectSQLite:
		if c.Name == "" {
			return fmt.Errorf("database name is required")
		}
	case DialectPostgreSQL, DialectMySQL, DialectMSSQL:
		if c.Host == "" || c.Name == "" || c.User == "" {
			return fmt.Errorf("host, name, and user are required for %s", c.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s (must be sqlite, postgresql, mysql, or mssql)", c.Type)
	}
	return nil
}

// DSN returns the database/sql driver name and data source name for this
// configuration. Only the sqlite3 and postgres drivers are linked into the
// binary; mysql and sqlserver DSNs are produced for builds that add those
// drivers.
func (c Config) DSN() (driver, dsn string, err error) {
	if c.URL != "" {
		return dsnFromURL(c.URL)
	}

	port := c.Port
	switch c.Type {
	case DialectSQLite:
		return "sqlite3", fmt.Sprintf("./%s.db", c.Name), nil
	case DialectPostgreSQL:
		if port == 0 {
			port = 5432
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Host, port),
			Path:     c.Name,
			RawQuery: "sslmode=" + sslMode,
		}
		return "postgres", u.String(), nil
	case DialectMySQL:
		if port == 0 {
			port = 3306
		}
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, port, c.Name), nil
	case DialectMSSQL:
		if port == 0 {
			port = 1433
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Host, port),
			RawQuery: "database=" + url.QueryEscape(c.Name),
		}
		return "sqlserver", u.String(), nil
	default:
		return "", "", fmt.Errorf("unsupported database type: %s", c.Type)
	}
}

// dsnFromURL maps a database URL to a driver name and DSN
func dsnFromURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "sqlite":
		// sqlite:///./app.db style URLs carry the path after the slashes.
		path := strings.TrimPrefix(rawURL, "sqlite://")
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			return "", "", fmt.Errorf("sqlite URL is missing a file path")
		}
		return "sqlite3", path, nil
	case "postgres", "postgresql":
		u.Scheme = "postgres"
		return "postgres", u.String(), nil
	case "mysql":
		host := u.Host
		if u.Port() == "" {
			host += ":3306"
		}
		password, _ := u.User.Password()
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true",
			u.User.Username(), password, host, strings.TrimPrefix(u.Path, "/")), nil
	case "mssql", "sqlserver":
		u.Scheme = "sqlserver"
		return "sqlserver", u.String(), nil
	default:
		return "", "", fmt.Errorf("unsupported database URL scheme: %s", u.Scheme)
	}
}

// dialectForDriver maps a driver name back to its dialect constant
func dialectForDriver(driver string) string {
	switch driver {
	case "sqlite3":
		return DialectSQLite
	case "postgres":
		return DialectPostgreSQL
	case "mysql":
		return DialectMySQL
	case "sqlserver":
		return DialectMSSQL
	default:
		return driver
	}
}

// Rebind rewrites ? placeholders into the dialect's positional form.
// SQLite and MySQL keep ?, PostgreSQL uses $1..$n, SQL Server uses @p1..@pn.
func Rebind(dialect, query string) string {
	var prefix string
	switch dialect {
	case DialectPostgreSQL:
		prefix = "$"
	case DialectMSSQL:
		prefix = "@p"
	default:
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(prefix)
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
