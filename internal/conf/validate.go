// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if strings.TrimSpace(settings.Data.Path) == "" {
		ve.Errors = append(ve.Errors, "data path must not be empty")
	}

	ve.Errors = append(ve.Errors, validateCatalogSettings(&settings.Catalog)...)
	ve.Errors = append(ve.Errors, validateIngestSettings(&settings.Ingest)...)
	ve.Errors = append(ve.Errors, validateWebServerSettings(&settings.WebServer)...)

	if settings.Logging.DefaultLevel != "" && !isValidLogLevel(settings.Logging.DefaultLevel) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("invalid log level %q", settings.Logging.DefaultLevel))
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateCatalogSettings(settings *CatalogSettings) []string {
	var errs []string

	switch settings.Type {
	case CatalogSQLite:
		if settings.SQLite.Path == "" {
			errs = append(errs, "catalog.sqlite.path must be set for the sqlite catalog")
		}
	case CatalogMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			errs = append(errs, "catalog.mysql.host and catalog.mysql.database must be set for the mysql catalog")
		}
	default:
		errs = append(errs, fmt.Sprintf("catalog.type must be %q or %q, got %q", CatalogSQLite, CatalogMySQL, settings.Type))
	}

	if settings.SlowQueryThreshold < 0 {
		errs = append(errs, "catalog.slowquerythreshold must not be negative")
	}

	return errs
}

func validateIngestSettings(settings *IngestSettings) []string {
	var errs []string

	if len(settings.Cameras) == 0 {
		errs = append(errs, "ingest.cameras must list at least one camera folder name")
	}
	for _, camera := range settings.Cameras {
		if camera == "" || strings.ContainsAny(camera, `/\*?[`) {
			errs = append(errs, fmt.Sprintf("invalid camera folder name %q", camera))
		}
	}

	if len(settings.RawExtensions) == 0 && len(settings.JPEGExtensions) == 0 {
		errs = append(errs, "at least one RAW or JPEG extension is required")
	}
	for _, ext := range slices.Concat(settings.RawExtensions, settings.JPEGExtensions) {
		if ext == "" || strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("extension %q must be non-empty and given without a leading dot", ext))
		}
	}

	for name, pattern := range map[string]string{
		"ingest.positionpattern": settings.PositionPattern,
		"ingest.orthopattern":    settings.OrthoPattern,
	} {
		if pattern == "" {
			errs = append(errs, name+" must not be empty")
			continue
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Sprintf("%s %q is not a valid glob: %v", name, pattern, err))
		}
	}

	if settings.Workers < 0 {
		errs = append(errs, "ingest.workers must not be negative")
	}

	slices.Sort(errs)
	return errs
}

func validateWebServerSettings(settings *WebServerSettings) []string {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("webserver.listen %q must be host:port: %v", settings.Listen, err))
	}
	if settings.JPEGQuality < 1 || settings.JPEGQuality > 100 {
		errs = append(errs, "webserver.jpegquality must be between 1 and 100")
	}
	if settings.CacheTTL < 0 {
		errs = append(errs, "webserver.cachettl must not be negative")
	}
	return errs
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
