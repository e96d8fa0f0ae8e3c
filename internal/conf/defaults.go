// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("data.path", "data")

	viper.SetDefault("catalog.type", CatalogSQLite)
	viper.SetDefault("catalog.sqlite.path", "vistool.db")
	viper.SetDefault("catalog.mysql.host", "localhost")
	viper.SetDefault("catalog.mysql.port", "3306")
	viper.SetDefault("catalog.mysql.username", "vistool")
	viper.SetDefault("catalog.mysql.password", "")
	viper.SetDefault("catalog.mysql.database", "vistool")
	viper.SetDefault("catalog.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("ingest.cameras", []string{"sony", "canon", "Mavic2Pro"})
	viper.SetDefault("ingest.rawextensions", []string{"ARW", "DNG"})
	viper.SetDefault("ingest.jpegextensions", []string{"JPG", "jpg"})
	viper.SetDefault("ingest.positionpattern", "CamPos*.txt")
	viper.SetDefault("ingest.orthopattern", "Ortho*.tif")
	viper.SetDefault("ingest.workers", 0)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", "127.0.0.1:8080")
	viper.SetDefault("webserver.cachettl", 10*time.Minute)
	viper.SetDefault("webserver.jpegquality", 85)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/vistool.log")
	viper.SetDefault("logging.file_output.level", "debug")
}
