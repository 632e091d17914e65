package environ

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeEnvFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func fileOnly() ResolveOptions {
	opts := DefaultResolveOptions()
	opts.IncludeEnviron = false
	return opts
}

func TestParseQualifiesKeys(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"DEBUG=True",
		"PROJECT_NAME=FOO",
		"SECRET_KEY=abc=def",
		"lower=ignored",
		"# comment",
		"",
		"EMPTY=",
		"SPACED = no",
	}, "\n")

	got, err := Parse(strings.NewReader(input), ParseOptions{Naming: DefaultNaming()})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	want := Environment{
		"DEBUG":             "True",
		"PROJECT_NAME":      "FOO",
		"DJANGO_SECRET_KEY": "abc=def",
		"DJANGO_EMPTY":      "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected environment (-want +got):\n%s", diff)
	}
}

func TestParseLastEntryWins(t *testing.T) {
	t.Parallel()

	got, err := Parse(strings.NewReader("DEBUG=False\r\nDEBUG=True\r\n"), ParseOptions{Naming: DefaultNaming()})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got["DEBUG"] != "True" {
		t.Fatalf("expected last value to win, got %q", got["DEBUG"])
	}
}

func TestParseStrict(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("DEBUG=True\n\nnot an entry\n"), ParseOptions{Naming: DefaultNaming(), Strict: true})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 3 {
		t.Fatalf("expected line 3, got %d", parseErr.Line)
	}
}

func TestParseCustomNaming(t *testing.T) {
	t.Parallel()

	naming := Naming{Prefix: "APP_", NoPrefix: []string{"PORT"}}
	got, err := Parse(strings.NewReader("PORT=80\nNAME=x\n"), ParseOptions{Naming: naming})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if diff := cmp.Diff(Environment{"PORT": "80", "APP_NAME": "x"}, got); diff != "" {
		t.Fatalf("unexpected environment (-want +got):\n%s", diff)
	}
}

func TestResolveFromDirectoryAndFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeEnvFile(t, dir, "DEBUG=True\nPROJECT_NAME=FOO")
	want := Environment{"DEBUG": "True", "PROJECT_NAME": "FOO"}

	for _, target := range []string{dir, path} {
		got, err := Resolve(target, fileOnly())
		if err != nil {
			t.Fatalf("Resolve(%s) returned error: %v", target, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Resolve(%s) mismatch (-want +got):\n%s", target, diff)
		}
	}
}

func TestResolveMissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	got, err := Resolve(filepath.Join(t.TempDir(), "nope"), fileOnly())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty environment, got %v", got)
	}

	got, err = Resolve(t.TempDir(), fileOnly())
	if err != nil {
		t.Fatalf("Resolve returned error for directory without .env: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty environment, got %v", got)
	}
}

func TestResolveOverlaysProcessEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeEnvFile(t, dir, "DEBUG=True\nSECRET_KEY=file")

	opts := DefaultResolveOptions()
	opts.Environ = func() Environment {
		return Environment{"DEBUG": "False", "HOME": "/root", "DJANGO_SECRET_KEY": "process"}
	}

	got, err := Resolve(dir, opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := Environment{"DEBUG": "True", "HOME": "/root", "DJANGO_SECRET_KEY": "file"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected environment (-want +got):\n%s", diff)
	}
}

func TestResolveIncludesRealEnviron(t *testing.T) {
	t.Setenv("AUTOSETTINGS_TEST_MARKER", "present")

	got, err := Resolve("", DefaultResolveOptions())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got["AUTOSETTINGS_TEST_MARKER"] != "present" {
		t.Fatalf("expected process environment to be included")
	}
}

func TestNamingSettingName(t *testing.T) {
	t.Parallel()

	naming := DefaultNaming()
	testCases := []struct {
		key  string
		name string
		ok   bool
	}{
		{key: "DEBUG", name: "DEBUG", ok: true},
		{key: "DJANGO_SECRET_KEY", name: "SECRET_KEY", ok: true},
		{key: "DJANGO_", ok: false},
		{key: "FOO", ok: false},
	}
	for _, tc := range testCases {
		name, ok := naming.SettingName(tc.key)
		if name != tc.name || ok != tc.ok {
			t.Fatalf("SettingName(%q) = (%q, %v), want (%q, %v)", tc.key, name, ok, tc.name, tc.ok)
		}
	}
}

func TestEnvironmentLookup(t *testing.T) {
	t.Parallel()

	env := Environment{"A": "1", "B": ""}
	if v, ok := env.Lookup("A"); !ok || v != "1" {
		t.Fatalf("expected A=1")
	}
	if _, ok := env.Lookup("B"); ok {
		t.Fatalf("expected empty value to count as absent")
	}
	if diff := cmp.Diff([]string{"A", "B"}, env.Keys()); diff != "" {
		t.Fatalf("unexpected keys (-want +got):\n%s", diff)
	}
}

func TestEnvironmentClone(t *testing.T) {
	t.Parallel()

	env := Environment{"DEBUG": "True"}
	clone := env.Clone()
	clone["DEBUG"] = "False"

	if env["DEBUG"] != "True" {
		t.Fatalf("expected original to be unchanged, got %q", env["DEBUG"])
	}
	if Environment(nil).Clone() != nil {
		t.Fatalf("expected nil clone of nil environment")
	}
}
