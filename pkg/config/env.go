package config

import (
	"reflect"
	"strings"
	"sync"
)

// EnvPrefix is the prefix every environment override must carry.
const EnvPrefix = "INBOXFLOW_"

// envPaths maps each `env` struct tag of Config to its koanf path, so that
// INBOXFLOW_N8N_API_KEY lands on n8n.api_key rather than n8n.api.key.
var envPaths = sync.OnceValue(func() map[string]string {
	paths := make(map[string]string)
	collectEnvPaths(reflect.TypeFor[Config](), "", paths)
	return paths
})

func collectEnvPaths(t reflect.Type, prefix string, into map[string]string) {
	for field := range fields(t) {
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if name := field.Tag.Get("env"); name != "" && name != "-" {
			into[name] = key
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			collectEnvPaths(field.Type, key, into)
		}
	}
}

func fields(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}

// envKeyToPath resolves an environment variable to a koanf path. Untagged
// names split on their first underscore: INBOXFLOW_TEMPLATES_CACHE_SIZE
// becomes templates.cache_size.
func envKeyToPath(name string) string {
	if path, ok := envPaths()[name]; ok {
		return path
	}
	parts := strings.FieldsFunc(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), func(r rune) bool {
		return r == '_'
	})
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}
