// Package config loads connection defaults via viper, layering a
// config file over environment variables over built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings are the tunables a façade caller can override; nothing
// here is device-specific or secret. Long-term pairing credentials
// never live in Settings — the façade consumes and returns those
// directly via internal/device.Credentials.
type Settings struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	IdleCacheTTL     time.Duration `mapstructure:"idle_cache_ttl"`
	DisplayName      string        `mapstructure:"display_name"`
	LogLevel         string        `mapstructure:"log_level"`
}

// Default returns the built-in settings with no file or environment
// overrides applied.
func Default() *Settings {
	return &Settings{
		HandshakeTimeout: 5 * time.Second,
		IdleCacheTTL:     120 * time.Second,
		DisplayName:      "atvremote",
		LogLevel:         "info",
	}
}

// Load reads settings from path (if non-empty) and from
// ATVREMOTE_-prefixed environment variables, falling back to Default
// for anything neither source sets.
func Load(path string) (*Settings, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix("atvremote")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &s, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("handshake_timeout", d.HandshakeTimeout)
	v.SetDefault("idle_cache_ttl", d.IdleCacheTTL)
	v.SetDefault("display_name", d.DisplayName)
	v.SetDefault("log_level", d.LogLevel)
}
