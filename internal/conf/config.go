// Package conf holds the engine configuration: which backend binds each
// service, where dynamic libraries live, and the ambient settings.
package conf

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/enginecore/enginecore/internal/errdefs"
)

// Backend modes.
const (
	ModeNone     = "none"
	ModeEmbedded = "embedded"
	ModeDynamic  = "dynamic"
	ModeShadow   = "shadow"
)

type Config struct {
	LogLevel      string             `json:"log_level" mapstructure:"log_level"`
	FrameInterval time.Duration      `json:"frame_interval" mapstructure:"frame_interval"`
	Plugin        Plugin             `json:"plugin" mapstructure:"plugin"`
	Services      map[string]Backend `json:"services" mapstructure:"services"`
	Inspect       Inspect            `json:"inspect" mapstructure:"inspect"`
}

type Plugin struct {
	Dir         string `json:"dir" mapstructure:"dir"`
	Debug       bool   `json:"debug" mapstructure:"debug"`
	DebugSuffix string `json:"debug_suffix" mapstructure:"debug_suffix"`
}

// Backend selects what binds one service. Name is the embedded backend name
// or the library name, depending on Mode. A Required backend that fails to
// bind fails the service's module instead of leaving it on stubs.
type Backend struct {
	Mode     string `json:"mode" mapstructure:"mode"`
	Name     string `json:"name" mapstructure:"name"`
	Required bool   `json:"required" mapstructure:"required"`
}

type Inspect struct {
	Listen string `json:"listen" mapstructure:"listen"`
}

// Default returns the configuration used when no file is given: headless
// dummy backends, the host filesystem, no sound.
func Default() Config {
	return Config{
		LogLevel:      "info",
		FrameInterval: 16 * time.Millisecond,
		Plugin: Plugin{
			Dir:         "./plugins",
			DebugSuffix: "d",
		},
		Services: map[string]Backend{
			"display":  {Mode: ModeEmbedded, Name: "dummy"},
			"sound":    {Mode: ModeNone},
			"physics":  {Mode: ModeEmbedded, Name: "dummy"},
			"joystick": {Mode: ModeEmbedded, Name: "dummy"},
			"keyboard": {Mode: ModeEmbedded, Name: "dummy"},
			"file":     {Mode: ModeEmbedded, Name: "os"},
			"main":     {Mode: ModeEmbedded, Name: "dummy"},
		},
		Inspect: Inspect{
			Listen: "127.0.0.1:25780",
		},
	}
}

// Backend returns the backend configured for a service. Service names are
// matched case-insensitively; an unlisted service gets ModeNone.
func (c *Config) Backend(service string) Backend {
	if b, ok := c.Services[strings.ToLower(service)]; ok {
		if b.Mode == "" {
			b.Mode = ModeNone
		}
		return b
	}
	for k, b := range c.Services {
		if strings.EqualFold(k, service) {
			return b
		}
	}
	return Backend{Mode: ModeNone}
}

func (c *Config) Validate() error {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := c.Services[name]
		switch b.Mode {
		case "", ModeNone:
		case ModeEmbedded, ModeDynamic, ModeShadow:
			if b.Name == "" {
				return fmt.Errorf("service %s: mode %s needs a name: %w", name, b.Mode, errdefs.ErrConfig)
			}
		default:
			return fmt.Errorf("service %s: unknown mode %q: %w", name, b.Mode, errdefs.ErrConfig)
		}
	}
	if c.FrameInterval < 0 {
		return fmt.Errorf("frame_interval must not be negative: %w", errdefs.ErrConfig)
	}
	return nil
}
