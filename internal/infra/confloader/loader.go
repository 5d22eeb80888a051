package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "SNAKEVIEW_"

// Origins of a configuration value, lowest priority first.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Loader merges the configuration layers into a struct and remembers which
// layer set each key.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	overrides map[string]any
	origin    map[string]string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithOverrides sets values applied after all other sources, typically
// from command-line flags.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) {
		l.overrides = values
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		origin:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configuration file path, if any.
func (l *Loader) FilePath() string {
	return l.filePath
}

// layer is one configuration source.
type layer struct {
	name string
	load func(k *koanf.Koanf) error
}

// Load reads the file, environment and override layers, in that order, and
// unmarshals the merged result into target. Values already set in target
// act as defaults.
func (l *Loader) Load(target any) error {
	known := envNames(StructKeys(target))

	layers := []layer{
		{SourceFile, l.loadFile},
		{SourceEnv, func(k *koanf.Koanf) error { return l.loadEnv(k, known) }},
		{SourceFlag, func(k *koanf.Koanf) error { return k.Load(mapProvider(l.overrides), nil) }},
	}
	for _, ly := range layers {
		k := koanf.New(".")
		if err := ly.load(k); err != nil {
			return fmt.Errorf("load %s: %w", ly.name, err)
		}
		for _, key := range k.Keys() {
			l.origin[key] = ly.name
		}
		if err := l.k.Merge(k); err != nil {
			return fmt.Errorf("merge %s: %w", ly.name, err)
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Origin returns the layer that set key, or SourceDefault when no layer did.
func (l *Loader) Origin(key string) string {
	if src, ok := l.origin[key]; ok {
		return src
	}
	return SourceDefault
}

func (l *Loader) loadFile(k *koanf.Koanf) error {
	if l.filePath == "" {
		return nil
	}
	if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
		return fmt.Errorf("%s: %w", l.filePath, err)
	}
	return nil
}

// loadEnv maps SNAKEVIEW_RELAY_MQTT_BROKER to relay.mqtt.broker. Names of
// known keys win so that SNAKEVIEW_LIVE_POLL_INTERVAL keeps its underscore;
// anything else has every underscore replaced with a dot.
func (l *Loader) loadEnv(k *koanf.Koanf, known map[string]string) error {
	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		if key, ok := known[s]; ok {
			return key
		}
		return strings.ReplaceAll(s, "_", ".")
	}
	return k.Load(env.Provider(l.envPrefix, ".", transform), nil)
}

// envNames maps the environment form of each key (dots replaced by
// underscores) to the key.
func envNames(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[strings.ReplaceAll(k, ".", "_")] = k
	}
	return m
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return DefaultEnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
