package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix        = "APP_"
	profileEnv       = envPrefix + "PROFILE"
	configDirEnv     = envPrefix + "CONFIG_DIR"
	defaultConfigDir = "configs"
)

// ErrNoProfile is returned by ProfileFromEnv when APP_PROFILE is unset.
var ErrNoProfile = errors.New(profileEnv + " environment variable is required (e.g. local, dev, qa, prod)")

// Option configures the Load function.
type Option func(*loadOptions)

type loadOptions struct {
	configDir string
	overrides map[string]any
}

// WithConfigDir sets the directory where config YAML files are located.
// It takes precedence over APP_CONFIG_DIR; without either, "configs"
// relative to the working directory is used.
func WithConfigDir(dir string) Option {
	return func(o *loadOptions) {
		o.configDir = dir
	}
}

// WithOverrides applies dotted-key values after every other layer, e.g.
// {"database.dsn": "file:/tmp/x.db"}. Overrides are still validated.
func WithOverrides(values map[string]any) Option {
	return func(o *loadOptions) {
		o.overrides = values
	}
}

// ProfileFromEnv returns the profile named by APP_PROFILE.
func ProfileFromEnv() (string, error) {
	profile := strings.TrimSpace(os.Getenv(profileEnv))
	if profile == "" {
		return "", ErrNoProfile
	}
	return profile, nil
}

// layer is one source in the configuration hierarchy.
type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// Load reads configuration from the following layers, highest precedence
// last:
//
//  1. Built-in defaults
//  2. Base config ({configDir}/base.yaml)
//  3. Profile config ({configDir}/{profile}.yaml)
//  4. Environment variables (APP_ prefix)
//  5. Overrides passed with WithOverrides
//
// Environment variables are matched against the keys already loaded, so an
// underscore inside a field name is not mistaken for nesting:
//
//	APP_SERVER_PORT                 -> server.port
//	APP_DATABASE_MAX_OPEN_CONNS     -> database.max_open_conns
//	APP_ACTIONS_DEBUG               -> actions.debug
//	APP_DATABASE_RETRY_MAX_ATTEMPTS -> database.retry.max_attempts
func Load(profile string, opts ...Option) (*Config, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	o := &loadOptions{configDir: os.Getenv(configDirEnv)}
	for _, opt := range opts {
		opt(o)
	}
	if o.configDir == "" {
		o.configDir = defaultConfigDir
	}

	k := koanf.New(".")

	files := []layer{
		{name: "defaults", provider: confmap.Provider(defaults(), ".")},
		{name: "base config", provider: file.Provider(filepath.Join(o.configDir, "base.yaml")), parser: yaml.Parser()},
		{name: "profile config", provider: file.Provider(filepath.Join(o.configDir, profile+".yaml")), parser: yaml.Parser()},
	}
	if err := loadLayers(k, files); err != nil {
		return nil, err
	}

	// The env lookup is built only after the file layers so keys that exist
	// solely in YAML resolve too.
	late := []layer{{name: "env vars", provider: envProvider(buildEnvLookup(k.Keys()))}}
	if len(o.overrides) > 0 {
		late = append(late, layer{name: "overrides", provider: confmap.Provider(o.overrides, ".")})
	}
	if err := loadLayers(k, late); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config for profile %q: %w", profile, err)
	}

	return &cfg, nil
}

func loadLayers(k *koanf.Koanf, layers []layer) error {
	for _, l := range layers {
		if err := k.Load(l.provider, l.parser); err != nil {
			return fmt.Errorf("loading %s: %w", l.name, err)
		}
	}
	return nil
}

// envProvider maps APP_ variables onto koanf keys. APP_PROFILE and
// APP_CONFIG_DIR select what to load and are not configuration values.
func envProvider(lookup map[string]string) koanf.Provider {
	return env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			if key == profileEnv || key == configDirEnv {
				return "", nil
			}
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

			if koanfKey, ok := lookup[key]; ok {
				return koanfKey, value
			}
			return strings.ReplaceAll(key, "_", "."), value
		},
	})
}

// validateProfile checks that the profile name is safe and non-empty.
func validateProfile(profile string) error {
	if strings.TrimSpace(profile) == "" {
		return errors.New("profile must not be empty")
	}
	if strings.ContainsAny(profile, `/\`) {
		return fmt.Errorf("profile must not contain path separators, got %q", profile)
	}
	if strings.Contains(profile, "..") {
		return fmt.Errorf("profile must not contain path traversal, got %q", profile)
	}
	return nil
}

// buildEnvLookup maps the env form of every known key ("server_read_timeout")
// to the key itself ("server.read_timeout").
func buildEnvLookup(keys []string) map[string]string {
	lookup := make(map[string]string, len(keys))
	for _, key := range keys {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}
	return lookup
}
