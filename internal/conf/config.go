// Package conf loads vistool settings from defaults, the YAML config file, environment variables and CLI flags.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/flower-explorer/vistool/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Catalog backend types
const (
	CatalogSQLite = "sqlite"
	CatalogMySQL  = "mysql"
)

// CatalogSettings selects and configures the catalog database
type CatalogSettings struct {
	Type string // sqlite or mysql

	SQLite struct {
		Path string // path to the catalog file
	}

	MySQL struct {
		Username string
		Password string
		Database string
		Host     string
		Port     string
	}

	SlowQueryThreshold time.Duration // queries slower than this are logged as warnings, 0 disables
}

// IngestSettings describes the imagery folder conventions
type IngestSettings struct {
	Cameras         []string // camera folder names, matched exactly
	RawExtensions   []string // RAW file extensions without dot, case as given
	JPEGExtensions  []string // JPEG file extensions without dot, case as given
	PositionPattern string   // glob for the camera position file in a flight folder
	OrthoPattern    string   // glob for the orthomosaic in a flight folder
	Workers         int      // parallel folder scanners, 0 means one per CPU
}

// WebServerSettings configures the HTTP API
type WebServerSettings struct {
	Enabled     bool
	Listen      string        // host:port
	CacheTTL    time.Duration // lifetime of cached lookups and rendered images
	JPEGQuality int           // quality of rendered images
}

// Settings contains all configuration options for vistool.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version    string `yaml:"-"`
	ConfigFile string `yaml:"-"`

	Data struct {
		Path string // data root holding <location>/<date>/<subsite>/<camera> folders
	}

	Catalog   CatalogSettings
	Ingest    IngestSettings
	WebServer WebServerSettings

	Logging logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

var settingsMutex sync.Mutex

// Load reads defaults, the config file from the default locations and environment variables.
func Load() (*Settings, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the default locations.
func LoadFile(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	return decodeSettings()
}

// Reload decodes settings from the current viper state, after flags have been bound.
func Reload() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	return decodeSettings()
}

func decodeSettings() (*Settings, error) {
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = viper.ConfigFileUsed()

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config into dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// SaveYAMLConfig writes settings to configPath. It overwrites the existing file,
// not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Write to a temporary file in the same directory, then rename over the target
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
