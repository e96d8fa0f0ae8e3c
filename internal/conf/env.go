// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "VISTOOL_DEBUG", validateEnvBool},
		{"data.path", "VISTOOL_DATA_PATH", validateEnvPath},

		{"catalog.type", "VISTOOL_CATALOG_TYPE", validateEnvCatalogType},
		{"catalog.sqlite.path", "VISTOOL_CATALOG_PATH", validateEnvPath},
		{"catalog.mysql.host", "VISTOOL_MYSQL_HOST", nil},
		{"catalog.mysql.port", "VISTOOL_MYSQL_PORT", validateEnvPort},
		{"catalog.mysql.username", "VISTOOL_MYSQL_USERNAME", nil},
		{"catalog.mysql.password", "VISTOOL_MYSQL_PASSWORD", nil},
		{"catalog.mysql.database", "VISTOOL_MYSQL_DATABASE", nil},

		{"ingest.workers", "VISTOOL_INGEST_WORKERS", validateEnvWorkers},

		{"webserver.listen", "VISTOOL_WEBSERVER_LISTEN", nil},
		{"logging.default_level", "VISTOOL_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvCatalogType(value string) error {
	switch value {
	case CatalogSQLite, CatalogMySQL:
		return nil
	}
	return fmt.Errorf("must be %q or %q", CatalogSQLite, CatalogMySQL)
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvWorkers(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !isValidLogLevel(value) {
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
	return nil
}

// validateEnvPath requires an absolute path with no traversal components
func validateEnvPath(value string) error {
	cleanedPath := filepath.Clean(value)

	if !filepath.IsAbs(cleanedPath) {
		return fmt.Errorf("path must be absolute, got relative path: %s", cleanedPath)
	}

	for part := range strings.SplitSeq(value, string(os.PathSeparator)) {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", value)
		}
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
