// conf/utils.go various util functions for configuration package
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/flower-explorer/vistool/internal/errors"
)

const appDirName = "vistool"

// GetDefaultConfigPaths returns the configuration search paths for the current operating system.
// If a config.yaml exists in one of them, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case "windows":
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("operation", "get-executable-path").
				Build()
		}
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", appDirName),
			filepath.Dir(exePath),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", appDirName),
			filepath.Join("/etc", appDirName),
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}

// GetBasePath expands environment variables in path, cleans it and makes sure the directory exists.
func GetBasePath(path string) (string, error) {
	basePath := filepath.Clean(os.ExpandEnv(path))

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o750); err != nil {
			return "", errors.New(fmt.Errorf("failed to create directory '%s': %w", basePath, err)).
				Category(errors.CategoryFileIO).
				FileContext(basePath).
				Build()
		}
	}

	return basePath, nil
}

// DataRoot returns the absolute data root with environment variables expanded.
func (s *Settings) DataRoot() (string, error) {
	root, err := filepath.Abs(os.ExpandEnv(s.Data.Path))
	if err != nil {
		return "", errors.New(fmt.Errorf("resolve data root %q: %w", s.Data.Path, err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return root, nil
}
