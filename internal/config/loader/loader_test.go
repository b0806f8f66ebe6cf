package loader

import (
	"errors"
	"reflect"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"ok.toml": {Data: []byte(`
log_level = "debug"
[extensions.history]
depth = 50
`)},
		"ok.yaml": {Data: []byte(`
log_level: debug
extensions:
  history:
    depth: 50
`)},
		"bad.toml":   {Data: []byte("log_level = \n")},
		"bad.yaml":   {Data: []byte("a: [1,\n")},
		"empty.toml": {Data: nil},
	}
}

func TestLoadFormats(t *testing.T) {
	fsys := testFS()
	tests := []struct {
		path  string
		depth any
	}{
		{"ok.toml", int64(50)},
		{"ok.yaml", 50},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l, err := ForPath(fsys, tt.path)
			if err != nil {
				t.Fatal(err)
			}
			got, err := l.Load()
			if err != nil {
				t.Fatal(err)
			}
			if got["log_level"] != "debug" {
				t.Errorf("log_level = %v", got["log_level"])
			}
			hist := got["extensions"].(map[string]any)["history"].(map[string]any)
			if !reflect.DeepEqual(hist["depth"], tt.depth) {
				t.Errorf("depth = %#v", hist["depth"])
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	fsys := testFS()
	for _, path := range []string{"bad.toml", "bad.yaml"} {
		l, _ := ForPath(fsys, path)
		_, err := l.Load()
		var perr *ParseError
		if !errors.As(err, &perr) || perr.Path != path || perr.Line == 0 {
			t.Errorf("%s: err = %v", path, err)
		}
	}
	if _, err := ForPath(fsys, "config.ini"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v", err)
	}
	l, _ := ForPath(fsys, "missing.toml")
	if got, err := l.Load(); got != nil || err != nil {
		t.Errorf("missing file = %v, %v", got, err)
	}
	l, _ = ForPath(fsys, "empty.toml")
	if got, err := l.Load(); err != nil || len(got) != 0 {
		t.Errorf("empty file = %v, %v", got, err)
	}
}

func TestEnvLoader(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)
	l.environ = func() []string {
		return []string{
			"INKSTORM_LOG_LEVEL=warn",
			"INKSTORM_STRICT=yes",
			"INKSTORM_EXT__positionTracker__LIMIT=3",
			"INKSTORM_EXT__mention__class_name=at",
			"INKSTORM_EXT__broken=1",
			"HOME=/root",
		}
	}
	got, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"log_level": "warn",
		"strict":    true,
		"extensions": map[string]any{
			"positionTracker": map[string]any{"limit": int64(3)},
			"mention":         map[string]any{"class_name": "at"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("env = %#v", got)
	}
}
