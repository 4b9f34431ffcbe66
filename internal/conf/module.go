package conf

import (
	"github.com/enginecore/enginecore/cmd/flags"
	"go.uber.org/fx"
)

// FxModule provides the *Config loaded from the --config file.
func FxModule() fx.Option {
	return fx.Options(
		fx.Provide(loadConfig),
	)
}

func loadConfig() (*Config, error) {
	cfg, err := Load(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.Listen != "" {
		cfg.Inspect.Listen = flags.Listen
	}
	return cfg, nil
}
