// Package config loads the YAML configuration files of spec §6
// (ClientConfig, ExporterConfig), resolving the ClientConfig file path by
// the precedence chain in clientConfigPath, and applying the
// environment-variable overrides spec §6 names
// (JUMPSTARTER_HOST, JMP_DRIVERS_ALLOW, JUMPSTARTER_GRPC_INSECURE).
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/jerrors"
)

const apiVersion = "jumpstarter.dev/v1alpha1"

// TLSConfig is the {ca, insecure} pair a ClientConfig carries (spec §6).
type TLSConfig struct {
	CA       string `mapstructure:"ca" yaml:"ca,omitempty"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure,omitempty"`
}

// DriversConfig is a ClientConfig's allow-list (spec §4.7, §6).
type DriversConfig struct {
	Allow  []string `mapstructure:"allow" yaml:"allow"`
	Unsafe bool     `mapstructure:"unsafe" yaml:"unsafe,omitempty"`
}

// ClientConfig is the `{endpoint, tls, token, drivers}` document spec §6
// describes.
type ClientConfig struct {
	APIVersion string        `mapstructure:"apiVersion" yaml:"apiVersion"`
	Kind       string        `mapstructure:"kind" yaml:"kind"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	TLS        TLSConfig     `mapstructure:"tls" yaml:"tls,omitempty"`
	Token      string        `mapstructure:"token" yaml:"token"`
	Drivers    DriversConfig `mapstructure:"drivers" yaml:"drivers"`
}

// DriverInstance is the recursive `{type, children, config}` shape spec §6
// describes for ExporterConfig.export. A missing Type defaults to the
// composite driver; missing Children/Config default to empty, applied by
// Normalize.
type DriverInstance struct {
	Type     string                     `mapstructure:"type" yaml:"type,omitempty"`
	Children map[string]*DriverInstance `mapstructure:"children" yaml:"children,omitempty"`
	Config   map[string]any             `mapstructure:"config" yaml:"config,omitempty"`
}

// CompositeDriverType is the default DriverInstance.Type, matching
// internal/tree.CompositeClientClass's defining driver rather than the
// client-facing class it resolves to.
const CompositeDriverType = "jumpstarter_driver_composite.driver.Composite"

// Normalize fills in DriverInstance's documented defaults, recursively.
func (d *DriverInstance) Normalize() {
	if d.Type == "" {
		d.Type = CompositeDriverType
	}
	if d.Children == nil {
		d.Children = map[string]*DriverInstance{}
	}
	if d.Config == nil {
		d.Config = map[string]any{}
	}
	for _, child := range d.Children {
		child.Normalize()
	}
}

// ExporterConfig is the `{endpoint, token, export}` document spec §6
// describes.
type ExporterConfig struct {
	APIVersion string          `mapstructure:"apiVersion" yaml:"apiVersion"`
	Kind       string          `mapstructure:"kind" yaml:"kind"`
	Endpoint   string          `mapstructure:"endpoint" yaml:"endpoint"`
	Token      string          `mapstructure:"token" yaml:"token"`
	Export     DriverInstance  `mapstructure:"export" yaml:"export"`
}

// clientConfigPath resolves spec §6's ClientConfig path, following the
// precedence chain python/jumpstarter/client/config.py's Config._filename
// applies: explicit context argument, then JUMPSTARTER_CONTEXT, then the
// unversioned default, with JUMPSTARTER_CONFIG able to override the path
// outright regardless of context.
func clientConfigPath(context string) string {
	if p := os.Getenv("JUMPSTARTER_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".config", "jumpstarter")

	if context == "" {
		context = os.Getenv("JUMPSTARTER_CONTEXT")
	}
	if context != "" {
		return filepath.Join(base, "config_"+context+".yaml")
	}
	return filepath.Join(base, "config.yaml")
}

// LoadClientConfig reads and decodes a ClientConfig from the resolved
// path (see clientConfigPath), then applies the JMP_DRIVERS_ALLOW,
// JUMPSTARTER_GRPC_INSECURE and JUMPSTARTER_HOST environment overrides
// spec §6 names.
func LoadClientConfig(context string) (*ClientConfig, error) {
	path := clientConfigPath(context)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "read client config "+path, err)
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "decode client config "+path, err)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = apiVersion
	}
	applyClientEnv(&cfg)
	return &cfg, nil
}

// WatchClientConfig behaves like LoadClientConfig, but keeps watching the
// resolved file for changes (fsnotify, via viper.WatchConfig) and invokes
// onChange with the freshly decoded config whenever it does - the
// hot-reload of the allow-list the DOMAIN STACK wiring calls for, so a
// running exporter or client picks up a widened/narrowed allow-list
// without a restart.
func WatchClientConfig(context string, onChange func(*ClientConfig)) (*ClientConfig, error) {
	path := clientConfigPath(context)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "read client config "+path, err)
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "decode client config "+path, err)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = apiVersion
	}
	applyClientEnv(&cfg)

	v.OnConfigChange(func(fsnotify.Event) {
		var reloaded ClientConfig
		if err := v.Unmarshal(&reloaded); err != nil {
			return
		}
		if reloaded.APIVersion == "" {
			reloaded.APIVersion = apiVersion
		}
		applyClientEnv(&reloaded)
		onChange(&reloaded)
	})
	v.WatchConfig()

	return &cfg, nil
}

// applyClientEnv applies JMP_DRIVERS_ALLOW ("UNSAFE" or a comma list),
// JUMPSTARTER_GRPC_INSECURE=1 and JUMPSTARTER_HOST (replacing Endpoint)
// on top of a decoded ClientConfig, the
// precedence spec §6 describes for process-level overrides.
func applyClientEnv(cfg *ClientConfig) {
	if allow := os.Getenv("JMP_DRIVERS_ALLOW"); allow != "" {
		if strings.EqualFold(allow, "UNSAFE") {
			cfg.Drivers.Unsafe = true
		} else {
			cfg.Drivers.Allow = strings.Split(allow, ",")
		}
	}
	if os.Getenv("JUMPSTARTER_GRPC_INSECURE") == "1" {
		cfg.TLS.Insecure = true
	}
	if host := os.Getenv("JUMPSTARTER_HOST"); host != "" {
		cfg.Endpoint = host
	}
}

// LoadExporterConfig reads and decodes an ExporterConfig from path,
// normalizing the export DriverInstance tree's documented defaults.
func LoadExporterConfig(path string) (*ExporterConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "read exporter config "+path, err)
	}

	var cfg ExporterConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, "decode exporter config "+path, err)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = apiVersion
	}
	cfg.Export.Normalize()
	return &cfg, nil
}
