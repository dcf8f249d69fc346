package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// loader layers defaults, the given sources and the environment, in that
// order, and remembers which layer set each key.
type loader struct {
	validate *validator.Validate

	mu   sync.RWMutex
	k    *koanf.Koanf
	meta Metadata
}

// NewService creates a new configuration service with validation support.
func NewService() Service {
	return &loader{
		validate: validator.New(),
		k:        koanf.New("."),
		meta:     Metadata{Sources: make(map[string]SourceType)},
	}
}

// Load builds a Config. Later sources win over earlier ones; environment
// variables win over every source.
func (l *loader) Load(_ context.Context, sources ...Source) (*Config, error) {
	l.mu.Lock()
	l.k = koanf.New(".")
	l.meta = Metadata{Sources: make(map[string]SourceType), LoadedAt: time.Now()}
	l.mu.Unlock()

	if err := l.layer(SourceDefault, func() error {
		return l.k.Load(structs.Provider(Default(), "koanf"), nil)
	}); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	for _, src := range sources {
		if src == nil || src.Type() == SourceEnv {
			continue
		}
		if err := l.layer(src.Type(), func() error { return l.merge(src) }); err != nil {
			return nil, fmt.Errorf("failed to load from source %s: %w", src.Type(), err)
		}
	}
	if err := l.layer(SourceEnv, func() error {
		return l.k.Load(env.Provider(".", env.Opt{
			Prefix: EnvPrefix,
			TransformFunc: func(key, value string) (string, any) {
				return envKeyToPath(key), value
			},
		}), nil)
	}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return l.decode()
}

func (l *loader) merge(src Source) error {
	data, err := src.Load()
	if err != nil {
		return err
	}
	for key, value := range flatten("", data) {
		if err := l.k.Set(key, value); err != nil {
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}
	}
	return nil
}

// layer runs load and attributes every key it added or changed to source.
func (l *loader) layer(source SourceType, load func() error) error {
	before := l.k.All()
	if err := load(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, value := range l.k.All() {
		prev, existed := before[key]
		if !existed || fmt.Sprint(prev) != fmt.Sprint(value) {
			l.meta.Sources[key] = source
		}
	}
	return nil
}

// flatten turns nested maps into dot-separated keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if prefix != "" {
			k = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			maps.Copy(out, flatten(k, nested))
			continue
		}
		out[k] = v
	}
	return out
}

var sensitiveStringType = reflect.TypeFor[SensitiveString]()

func sensitiveStringHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != sensitiveStringType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	}
	return data, nil
}

func (l *loader) decode() (*Config, error) {
	var cfg Config
	err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				sensitiveStringHook,
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate runs the struct tag rules, then the cross-field rules.
func (l *loader) Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration cannot be nil")
	}
	if err := l.validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	switch t := cfg.Templates; {
	case t.Source == "http" && t.URL == "":
		return errors.New("templates.url is required when templates.source is http")
	case t.Source == "dir" && t.Dir == "":
		return errors.New("templates.dir is required when templates.source is dir")
	}
	return nil
}

// GetSource reports which layer last set key.
func (l *loader) GetSource(key string) SourceType {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if src, ok := l.meta.Sources[key]; ok {
		return src
	}
	return SourceDefault
}
