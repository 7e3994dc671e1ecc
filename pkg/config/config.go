// Package config loads skillet settings from config files, SKILLET_*
// environment variables and bound command-line flags through viper, and
// applies named profiles on top of the base settings.
package config

import (
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/telemetry"
)

const (
	// EnvPrefix prefixes every environment variable skillet reads.
	EnvPrefix = "SKILLET"
	// LocalConfigFile is merged over the global config when present in the
	// working directory.
	LocalConfigFile = ".skillet.yaml"
)

// TracingConfig mirrors the tracing.* keys.
type TracingConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Sampler string  `mapstructure:"sampler"`
	Ratio   float64 `mapstructure:"ratio"`
}

// ProfileConfig holds partial overrides keyed like the top-level config.
type ProfileConfig map[string]any

// Config is the full set of skillet settings.
type Config struct {
	Target         string                   `mapstructure:"target"`
	ExtraKnownKeys []string                 `mapstructure:"extra_known_keys"`
	Ignore         []string                 `mapstructure:"ignore"`
	LogLevel       string                   `mapstructure:"log_level"`
	LogFormat      string                   `mapstructure:"log_format"`
	Color          string                   `mapstructure:"color"`
	Tracing        TracingConfig            `mapstructure:"tracing"`
	Profile        string                   `mapstructure:"profile"`
	Profiles       map[string]ProfileConfig `mapstructure:"profiles"`
}

// SetDefaults registers the default for every key. Keys need a default for
// AutomaticEnv to reach them through Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("target", "standard")
	v.SetDefault("extra_known_keys", []string{})
	v.SetDefault("ignore", []string{})
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "fmt")
	v.SetDefault("color", "auto")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
	v.SetDefault("profile", "")
}

// Init wires environment lookup and reads the config files into v. With an
// explicit file only that file is read and it must exist. Otherwise
// config.yaml is searched in $HOME/.skillet and the working directory, then
// .skillet.yaml from the working directory is merged on top. Missing files
// are not an error.
func Init(v *viper.Viper, file string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", file)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.skillet")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config")
		}
	}

	if info, err := os.Stat(LocalConfigFile); err == nil && info.Mode().IsRegular() {
		v.SetConfigFile(LocalConfigFile)
		if err := v.MergeInConfig(); err != nil {
			return errors.Wrapf(err, "failed to merge %s", LocalConfigFile)
		}
	}
	return nil
}

// Load unmarshals v and applies the active profile, if any.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}

	// "default" means the base settings.
	delete(cfg.Profiles, "default")

	name := activeProfile(cfg.Profile)
	if name == "" {
		return cfg, nil
	}
	profile, ok := cfg.Profiles[name]
	if !ok {
		return cfg, errors.Errorf("profile %q is not defined", name)
	}
	if err := applyProfile(&cfg, profile); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func activeProfile(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "default" {
		return ""
	}
	return profile
}

func applyProfile(cfg *Config, profile ProfileConfig) error {
	// Lists in a profile replace the base lists instead of merging by index.
	if _, ok := profile["extra_known_keys"]; ok {
		cfg.ExtraKnownKeys = nil
	}
	if _, ok := profile["ignore"]; ok {
		cfg.Ignore = nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}
	if err := decoder.Decode(map[string]any(profile)); err != nil {
		return errors.Wrap(err, "failed to apply profile configuration")
	}
	return nil
}

// ValidationTarget parses the configured target.
func (c Config) ValidationTarget() (skills.Target, error) {
	return skills.ParseTarget(c.Target)
}

// NewValidator builds a validator for the configured target and extra keys.
func (c Config) NewValidator() (*skills.Validator, error) {
	target, err := c.ValidationTarget()
	if err != nil {
		return nil, err
	}
	return skills.NewValidator(
		skills.WithTarget(target),
		skills.WithExtraKnownKeys(c.ExtraKnownKeys...),
	)
}

// NewDiscovery builds a discovery over roots that honours the ignore patterns.
func (c Config) NewDiscovery(roots ...string) (*skills.Discovery, error) {
	return skills.NewDiscovery(
		skills.WithRoots(roots...),
		skills.WithIgnore(c.Ignore...),
	)
}

// ColorMode returns the presenter colour mode for the color key.
func (c Config) ColorMode() presenter.ColorMode {
	return presenter.ParseColorMode(c.Color)
}

// TelemetryConfig converts the tracing keys for telemetry.InitTracer.
func (c Config) TelemetryConfig(serviceVersion string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Tracing.Enabled,
		ServiceName:    "skillet",
		ServiceVersion: serviceVersion,
		SamplerType:    c.Tracing.Sampler,
		SamplerRatio:   c.Tracing.Ratio,
	}
}
