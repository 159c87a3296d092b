// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"tradesim-ledger/pkg/db"
)

// Store backend selectors.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	// Store selects the account registry backend: "memory" (default) or
	// "postgres".
	Store string
	// RequireInitialDeposit rejects account creation with a zero opening
	// deposit when true. Defaults to false (zero allowed).
	RequireInitialDeposit bool
	DB                    db.Config
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*AppConfig, error) {
	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	store := os.Getenv("STORE")
	if store == "" {
		store = StoreMemory
	}
	if store != StoreMemory && store != StorePostgres {
		return nil, fmt.Errorf("invalid STORE %q: must be %q or %q", store, StoreMemory, StorePostgres)
	}

	requireInitialDeposit := false
	if v := os.Getenv("REQUIRE_INITIAL_DEPOSIT"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUIRE_INITIAL_DEPOSIT: %w", err)
		}
		requireInitialDeposit = parsed
	}

	cfg := &AppConfig{
		ServerPort:            serverPort,
		Store:                 store,
		RequireInitialDeposit: requireInitialDeposit,
	}

	if store == StorePostgres {
		dbHost := os.Getenv("DB_HOST")
		if dbHost == "" {
			dbHost = "localhost"
		}
		dbPortStr := os.Getenv("DB_PORT")
		if dbPortStr == "" {
			dbPortStr = "5432"
		}
		dbPort, err := strconv.Atoi(dbPortStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		dbUser := os.Getenv("DB_USER")
		if dbUser == "" {
			dbUser = "user"
		}
		dbPassword := os.Getenv("DB_PASSWORD")
		if dbPassword == "" {
			dbPassword = "password"
		}
		dbName := os.Getenv("DB_NAME")
		if dbName == "" {
			dbName = "ledgerdb"
		}
		dbSSLMode := os.Getenv("DB_SSLMODE")
		if dbSSLMode == "" {
			dbSSLMode = "disable"
		}
		cfg.DB = db.Config{
			Host:     dbHost,
			Port:     dbPort,
			User:     dbUser,
			Password: dbPassword,
			DBName:   dbName,
			SSLMode:  dbSSLMode,
		}
	}

	return cfg, nil
}
