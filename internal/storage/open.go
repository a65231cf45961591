package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/habitlog/internal/constants"
	"github.com/julianstephens/habitlog/internal/keyring"
	"github.com/julianstephens/habitlog/internal/storage/postgres"
	"github.com/julianstephens/habitlog/internal/storage/sqlite"
)

// KeyringConfig selects the connection string stored in the OS keyring
const KeyringConfig = "keyring"

// ErrEmbeddedCredentials is returned when a --config connection string carries a password
var ErrEmbeddedCredentials = errors.New("PostgreSQL connection strings with embedded credentials are not allowed")

// IsPostgres reports whether config looks like a PostgreSQL URL
func IsPostgres(config string) bool {
	return strings.HasPrefix(config, "postgres://") || strings.HasPrefix(config, "postgresql://")
}

// HasEmbeddedCredentials reports whether a PostgreSQL URL or DSN contains a password
func HasEmbeddedCredentials(connStr string) bool {
	if IsPostgres(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return false
		}
		_, isSet := u.User.Password()
		return isSet
	}
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "password") {
			return true
		}
	}
	return false
}

// ExpandHome replaces a leading "~/" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Open picks a backend for config without connecting to it.
//
// The connection string is taken, in order, from the HABITLOG_DB_CONNECTION
// environment variable (only when config is left at its default), the OS
// keyring (when config is "keyring"), or config itself. Only connection
// strings passed on the command line are checked for embedded passwords.
func Open(config string) (Provider, error) {
	if env := os.Getenv(constants.EnvConnection); env != "" && config == constants.DefaultConfigPath {
		return postgres.New(env), nil
	}

	if config == KeyringConfig {
		connStr, err := keyring.Default.ConnectionString()
		if err != nil {
			return nil, fmt.Errorf("failed to read connection string: %w", err)
		}
		return postgres.New(connStr), nil
	}

	if IsPostgres(config) {
		if HasEmbeddedCredentials(config) {
			return nil, ErrEmbeddedCredentials
		}
		return postgres.New(config), nil
	}

	path, err := ExpandHome(config)
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(path), nil
}
