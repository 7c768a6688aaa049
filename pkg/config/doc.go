// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for everything except SECRET_KEY, which has no safe default
// and must be set.
//
// # Configuration Structure
//
// Server settings:
//
//	HOST="0.0.0.0"
//	PORT="8000"
//	HEALTH_PORT="9090"
//	READ_TIMEOUT="15s"
//	WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	DATABASE_URL="sqlite:///./app.db"   # full URL, or build from the parts below
//	DB_TYPE="postgresql"                # sqlite, postgresql, mysql, mssql
//	DB_HOST="localhost"
//	DB_PORT="5432"
//	DB_NAME="taskforge"
//	DB_USER="taskforge"
//	DB_PASSWORD="secret"
//
// Auth settings:
//
//	SECRET_KEY="..."                    # required
//	ALGORITHM="HS256"                   # HS256, HS384, HS512
//	ACCESS_TOKEN_EXPIRE_MINUTES="30"
//	COOKIE_SECURE="true"
//
// Admin bootstrap settings:
//
//	ADMIN_USERNAME="admin"
//	ADMIN_PASSWORD="..."                # required on first boot; authoritative afterwards
//	ADMIN_EMAIL="admin@example.com"
//
// Security settings:
//
//	MAX_REQUEST_SIZE="10485760"
//	ALLOWED_ORIGINS="http://localhost:3000,http://localhost:8000"
//	LOG_ALL_REQUESTS="false"
//	REDIS_URL="redis://localhost:6379"  # optional shared rate limit store
//
// Observability settings:
//
//	LOG_LEVEL="info"  # debug, info, warn, error
//	METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Database: %s\n", cfg.Storage.Type)
//
// # Related Packages
//
//   - pkg/storage: Uses database configuration
//   - pkg/observability: Uses observability configuration
package config
