package app

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the application specific configuration. It is passed to
// App.Init, and decoded by the application with mapstructure.
type Config map[string]interface{}

// BaseConfig contains the process level configuration shared by every
// command, as well as the application itself.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// ListenAddress serves the application's HTTP handlers. Empty disables
	// the listener.
	ListenAddress      string `mapstructure:"listen_address"`
	DebugListenAddress string `mapstructure:"debug_listen_address"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	AppConfig Config `mapstructure:"app"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "launchpad",

	DebugListenAddress: "localhost:8123",

	ShutdownGracePeriod: 30 * time.Second,
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("listen_address", "LISTEN_ADDRESS")
	_ = viper.BindEnv("debug_listen_address", "DEBUG_LISTEN_ADDRESS")

	_ = viper.BindEnv("shutdown_grace_period", "SHUTDOWN_GRACE_PERIOD")

	_ = viper.BindEnv("enable_pprof", "ENABLE_PPROF")
	_ = viper.BindEnv("enable_expvar", "ENABLE_EXPVAR")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")
}

// BindAppEnv binds an application config key, read from Config, to an
// environment variable.
func BindAppEnv(key, envName string) {
	_ = viper.BindEnv("app."+key, envName)
}
