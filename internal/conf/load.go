package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "ENGINE"

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("frame_interval", d.FrameInterval)
	v.SetDefault("plugin.dir", d.Plugin.Dir)
	v.SetDefault("plugin.debug", d.Plugin.Debug)
	v.SetDefault("plugin.debug_suffix", d.Plugin.DebugSuffix)
	for name, b := range d.Services {
		v.SetDefault("services."+name+".mode", b.Mode)
		v.SetDefault("services."+name+".name", b.Name)
		v.SetDefault("services."+name+".required", b.Required)
	}
	v.SetDefault("inspect.listen", d.Inspect.Listen)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path on top of the defaults, then applies ENGINE_* environment
// overrides such as ENGINE_PLUGIN_DIR or ENGINE_SERVICES_SOUND_MODE. An
// empty path or a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			slog.Warn("Configuration file not found, using defaults.", slog.String("path", path))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path in the format its
// extension names.
func WriteDefault(path string) error {
	v := newViper()
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
