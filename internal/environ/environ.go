package environ

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// FileName is the override file looked up inside a directory.
const FileName = ".env"

var linePattern = regexp.MustCompile(`^([A-Z_]+)=(.*)$`)

// Environment is a flat key/value view of environment variables.
type Environment map[string]string

// Keys returns the keys in lexical order.
func (e Environment) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of e.
func (e Environment) Clone() Environment {
	if e == nil {
		return nil
	}
	out := make(Environment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Lookup returns the value for key, treating empty values as absent.
func (e Environment) Lookup(key string) (string, bool) {
	v, ok := e[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ParseError reports a line in an environment file that is not KEY=VALUE.
type ParseError struct {
	Path string
	Line int
	Text string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: malformed entry %q", e.Line, e.Text)
	}
	return fmt.Sprintf("%s:%d: malformed entry %q", e.Path, e.Line, e.Text)
}

// ParseOptions tunes Parse.
type ParseOptions struct {
	Naming Naming
	// Strict turns non-blank lines that are not KEY=VALUE into errors
	// instead of skipping them.
	Strict bool
	path   string
}

// Parse reads KEY=VALUE lines. Keys are restricted to uppercase letters and
// underscores, values are taken verbatim. Keys outside the no-prefix list
// are qualified with the prefix.
func Parse(r io.Reader, opts ParseOptions) (Environment, error) {
	env := Environment{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		match := linePattern.FindStringSubmatch(line)
		if match == nil {
			if opts.Strict && strings.TrimSpace(line) != "" {
				return nil, &ParseError{Path: opts.path, Line: lineNo, Text: line}
			}
			continue
		}
		env[opts.Naming.Qualify(match[1])] = match[2]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan environment: %w", err)
	}
	return env, nil
}

// ReadFile parses the environment file at path.
func ReadFile(path string, opts ParseOptions) (Environment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open environment file: %w", err)
	}
	defer f.Close()

	opts.path = path
	env, err := Parse(f, opts)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// FromEnviron snapshots the process environment.
func FromEnviron() Environment {
	env := Environment{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	ParseOptions
	IncludeEnviron bool
	// Environ replaces the process environment when IncludeEnviron is set.
	Environ func() Environment
}

// DefaultResolveOptions includes the process environment and uses the stock
// naming convention.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{
		ParseOptions:   ParseOptions{Naming: DefaultNaming()},
		IncludeEnviron: true,
	}
}

// Resolve builds the merged environment. path may name a file or a
// directory containing FileName; an empty path or a missing file only yields
// the process environment.
func Resolve(path string, opts ResolveOptions) (Environment, error) {
	env := Environment{}
	if opts.IncludeEnviron {
		source := opts.Environ
		if source == nil {
			source = FromEnviron
		}
		for k, v := range source() {
			env[k] = v
		}
	}

	if path == "" {
		return env, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("stat environment path: %w", err)
	}
	if info.IsDir() {
		path = filepath.Join(path, FileName)
		info, err = os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return env, nil
			}
			return nil, fmt.Errorf("stat environment file: %w", err)
		}
	}
	if !info.Mode().IsRegular() {
		return env, nil
	}

	fileEnv, err := ReadFile(path, opts.ParseOptions)
	if err != nil {
		return nil, err
	}
	for k, v := range fileEnv {
		env[k] = v
	}
	return env, nil
}
