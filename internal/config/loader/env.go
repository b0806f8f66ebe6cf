package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable the editor reads.
const EnvPrefix = "INKSTORM_"

// extensionMarker introduces per-extension options:
// INKSTORM_EXT__link__auto_link=true sets extensions.link.auto_link.
const extensionMarker = "EXT__"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	environ func() []string
}

// NewEnvLoader creates an environment loader for prefix (with trailing
// underscore).
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix: prefix,
		mapping: map[string]string{
			prefix + "LOG_LEVEL":  "log_level",
			prefix + "STRICT":     "strict",
			prefix + "COLLAB_URL": "collab.url",
			prefix + "CLIENT_ID":  "collab.client_id",
		},
		environ: os.Environ,
	}
}

// Load reads prefixed environment variables. Empty values are kept.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if path, mapped := l.mapping[name]; mapped {
			setPath(config, strings.Split(path, "."), parseValue(value))
			continue
		}
		rest := strings.TrimPrefix(name, l.prefix)
		if !strings.HasPrefix(rest, extensionMarker) {
			continue
		}
		ext, option, ok := strings.Cut(strings.TrimPrefix(rest, extensionMarker), "__")
		if !ok || ext == "" || option == "" {
			continue
		}
		setPath(config, []string{"extensions", ext, strings.ToLower(option)}, parseValue(value))
	}
	return config, nil
}

func setPath(data map[string]any, parts []string, value any) {
	for _, p := range parts[:len(parts)-1] {
		next, ok := data[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			data[p] = next
		}
		data = next
	}
	data[parts[len(parts)-1]] = value
}

// parseValue guesses the type of an environment value.
func parseValue(s string) any {
	if s == "" {
		return s
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}
