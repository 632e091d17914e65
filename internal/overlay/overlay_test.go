package overlay

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/autosettings/internal/environ"
	"github.com/eugenenazirov/autosettings/internal/settings"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestApplyOverlaysProjectSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "settings.hcl"), "TEST=123\nDIR=BASE_DIR")

	s := settings.Settings{settings.BaseDirKey: dir}
	if err := NewLoader(WithLogger(zaptest.NewLogger(t))).Apply("settings", s); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	want := settings.Settings{
		"TEST":              123,
		"DIR":               dir,
		settings.BaseDirKey: dir,
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("unexpected settings (-want +got):\n%s", diff)
	}
}

func TestApplyResolvesDottedModule(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "site", "settings.hcl"), `TEST = 123`)

	s := settings.Settings{settings.BaseDirKey: dir, settings.ProjectNameKey: "site"}
	if err := NewLoader().Apply(ModuleName("site"), s); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if s["TEST"] != 123 {
		t.Fatalf("expected TEST=123, got %#v", s["TEST"])
	}
}

func TestHCLEvaluation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.hcl")
	writeFile(t, path, strings.Join([]string{
		`DEBUG = !DEBUG`,
		`static = "static"`,
		`STATIC_ROOT = format("%s/%s", BASE_DIR, static)`,
		`ALLOWED_HOSTS = ["a.example.com", lower("B.EXAMPLE.COM")]`,
		`RATIO = 0.5`,
		`SECRET_KEY = env("DJANGO_SECRET_KEY", "fallback")`,
		`MISSING = env("NOT_SET", "fallback")`,
		`DB_HOST = DATABASES.default.HOST`,
		`LOGGING = { version = 1, disable_existing_loggers = false }`,
		`EMPTY = null`,
	}, "\n"))

	seed := settings.Settings{
		settings.BaseDirKey: "/srv/app",
		"DEBUG":             true,
		"DATABASES": map[string]any{
			"default": map[string]any{"HOST": "db", "PORT": 5432},
		},
	}
	loader := NewLoader(WithEnvironment(environ.Environment{"DJANGO_SECRET_KEY": "s3cr3t"}))
	got, err := loader.LoadFile(path, seed)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	want := settings.Settings{
		"DEBUG":         false,
		"STATIC_ROOT":   "/srv/app/static",
		"ALLOWED_HOSTS": []any{"a.example.com", "b.example.com"},
		"RATIO":         0.5,
		"SECRET_KEY":    "s3cr3t",
		"MISSING":       "fallback",
		"DB_HOST":       "db",
		"LOGGING":       map[string]any{"version": 1, "disable_existing_loggers": false},
		"EMPTY":         nil,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected settings (-want +got):\n%s", diff)
	}
	if seed["DEBUG"] != true {
		t.Fatalf("seed must not be modified")
	}
}

func TestHCLErrorsAreFatal(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"unknown variable": `DIR = UNDEFINED`,
		"syntax error":     `TEST = = 1`,
		"block":            "database {\n  host = \"x\"\n}",
	}

	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.hcl")
			writeFile(t, path, content)

			_, err := NewLoader().LoadFile(path, settings.Settings{})
			var diags hcl.Diagnostics
			if !errors.As(err, &diags) {
				t.Fatalf("expected HCL diagnostics, got %v", err)
			}
		})
	}
}

func TestYAMLSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "site", "settings.yaml"), strings.Join([]string{
		"TEST: 123",
		"TIME_ZONE: UTC",
		"lowercase: ignored",
		"CACHES:",
		"  default:",
		"    TIMEOUT: 300",
		"    1: one",
	}, "\n"))

	s := settings.Settings{settings.BaseDirKey: dir}
	if err := NewLoader().Apply("site.settings", s); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	want := settings.Settings{
		settings.BaseDirKey: dir,
		"TEST":              123,
		"TIME_ZONE":         "UTC",
		"CACHES": map[string]any{
			"default": map[string]any{"TIMEOUT": 300, "1": "one"},
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("unexpected settings (-want +got):\n%s", diff)
	}
}

func TestResolvePrefersHCL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "settings.yml"), "A: 1")
	writeFile(t, filepath.Join(dir, "settings.hcl"), "A = 2")

	path, err := Resolve(dir, "settings")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if filepath.Ext(path) != ".hcl" {
		t.Fatalf("expected hcl file, got %s", path)
	}
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()

	if err := NewLoader().Apply("settings", settings.Settings{}); !errors.Is(err, ErrMissingBaseDir) {
		t.Fatalf("expected ErrMissingBaseDir, got %v", err)
	}

	s := settings.Settings{settings.BaseDirKey: t.TempDir()}
	if err := NewLoader().Apply("missing.settings", s); !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}
}
