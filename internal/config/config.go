// Package config resolves run settings from flags, DEOBF_* environment
// variables and an optional YAML config file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, DEOBF_PACKAGE etc.
const EnvPrefix = "deobf"

// Config is the resolved set of run settings.
type Config struct {
	Package           string   `mapstructure:"package"`
	Output            string   `mapstructure:"output"`
	Append            bool     `mapstructure:"append"`
	Report            string   `mapstructure:"report"`
	VersionConstraint string   `mapstructure:"version-constraint"`
	Only              []string `mapstructure:"only"`
	Verbose           bool     `mapstructure:"verbose"`
	Color             bool     `mapstructure:"color"`
}

// SetDefaults registers every key so that environment overrides reach
// Unmarshal even when no config file mentions them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("package", "")
	v.SetDefault("output", "mappings.txt")
	v.SetDefault("append", true)
	v.SetDefault("report", "")
	v.SetDefault("version-constraint", "")
	v.SetDefault("only", []string{})
	v.SetDefault("verbose", false)
	v.SetDefault("color", false)
}

// Init points v at file, or at $HOME/.config/deobf/config.yaml when file is
// empty, and reads it. A missing default config file is not an error.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(filepath.Join(home, ".config", "deobf"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load unmarshals the current settings of v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
