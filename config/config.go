// Package config loads psplook settings from an optional JSON file with
// sensible defaults for every key.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings is the typed view of the loaded configuration.
type Settings struct {
	Sensitivity  float64
	InvertY      bool
	Tick         time.Duration
	Backoff      time.Duration
	Profile      string
	Device       string
	Grab         bool
	ProcessNames []string

	// RegionSizesMB are the guest RAM image sizes to look for, in MiB.
	RegionSizesMB []int
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// not an error; everything falls back to defaults.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("sensitivity", 50.0)
	viper.SetDefault("invertY", false)
	viper.SetDefault("tickMs", 10)
	viper.SetDefault("backoffMs", 1000)
	viper.SetDefault("profile", "mohh1")
	viper.SetDefault("device", "auto")
	viper.SetDefault("grab", false)
	viper.SetDefault("processNames", []string{})
	viper.SetDefault("regionSizesMb", []int{32})

	viper.SetConfigName("psplook.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Get returns the loaded settings with millisecond keys converted to
// durations.
func Get() Settings {
	return Settings{
		Sensitivity:   viper.GetFloat64("sensitivity"),
		InvertY:       viper.GetBool("invertY"),
		Tick:          time.Duration(viper.GetInt("tickMs")) * time.Millisecond,
		Backoff:       time.Duration(viper.GetInt("backoffMs")) * time.Millisecond,
		Profile:       viper.GetString("profile"),
		Device:        viper.GetString("device"),
		Grab:          viper.GetBool("grab"),
		ProcessNames:  viper.GetStringSlice("processNames"),
		RegionSizesMB: viper.GetIntSlice("regionSizesMb"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
