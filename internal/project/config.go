// Package project loads Postmk.toml: the library metadata, the optional
// CLI tool, the plugin roster, and the submodules the vendored sources
// come from. Plugin availability is data here, never a code path.
package project

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
)

// ConfigName is the file postmk looks for in the project root.
const ConfigName = "Postmk.toml"

// Plugin lifecycle states. Pending means the plugin is declared and its
// target construction is fully specified, but an upstream API it needs
// has not shipped; generation reports it instead of building it.
const (
	StateEnabled  = "enabled"
	StateDisabled = "disabled"
	StatePending  = "pending"
)

type Config struct {
	Library    LibrarySection              `toml:"library"`
	CLI        CLISection                  `toml:"cli"`
	Plugins    []PluginSection             `toml:"plugin"`
	Submodules map[string]SubmoduleSection `toml:"submodule"`
}

// LibrarySection describes the vendored core library.
type LibrarySection struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	SourceRoot   string   `toml:"source_root"`
	Fragment     string   `toml:"fragment"` // the externally-owned makefile fragment
	CXXVar       string   `toml:"cxx_var"`
	CVar         string   `toml:"c_var"`
	ObjExt       string   `toml:"obj_ext"`
	VersionFiles []string `toml:"version_files"`
	Require      string   `toml:"require"` // expr precondition, must evaluate true
}

// CLISection describes the optional command-line tool linked against
// the core library.
type CLISection struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Entry   string `toml:"entry"` // the tool's own translation unit
	Link    string `toml:"link"`  // "shared" (default) or "objects"
}

// PluginSection declares one plugin. Sources and Vendor are doublestar
// globs resolved relative to the project root; Vendor lists third-party
// units the plugin bundles.
type PluginSection struct {
	Name    string   `toml:"name"`
	State   string   `toml:"state"`
	When    string   `toml:"when"` // expr condition; false demotes to disabled
	Sources []string `toml:"sources"`
	Vendor  []string `toml:"vendor"`
}

type SubmoduleSection struct {
	URL    string `toml:"url"`
	Path   string `toml:"path"`
	Branch string `toml:"branch"`
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Map:
			if !srcField.IsNil() {
				if dstField.IsNil() {
					dstField.Set(reflect.MakeMap(dstField.Type()))
				}
				for _, key := range srcField.MapKeys() {
					dstField.SetMapIndex(key, srcField.MapIndex(key))
				}
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalSection is a helper to parse sections without conditional logic
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	if data, ok := rawCfg[name]; ok {
		if err := toml.Unmarshal([]byte(mustMarshal(data)), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}
	return nil
}

// unmarshalArraySection parses an array-of-tables section. The raw
// value is re-wrapped in a table first, since a bare array is not a
// valid TOML document.
func unmarshalArraySection[T any](rawCfg map[string]any, name string, dst *[]T) error {
	data, ok := rawCfg[name]
	if !ok {
		return nil
	}
	var wrapper map[string][]T
	if err := toml.Unmarshal([]byte(mustMarshal(map[string]any{name: data})), &wrapper); err != nil {
		return fmt.Errorf("failed to parse [[%s]] sections: %w", name, err)
	}
	*dst = wrapper[name]
	return nil
}

// unmarshalConditionalSection parses a section whose sub-tables may be
// keyed by expr conditions; matching sub-tables merge into the base.
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env Env) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env))
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	for expression, condMap := range conditionalFields {
		matched, err := evalCondition(expression, env)
		if err != nil {
			return fmt.Errorf("condition [%s.%q]: %w", name, expression, err)
		}
		if !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(condMap)), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

// evalCondition compiles and runs one expr condition against env.
func evalCondition(expression string, env Env) (bool, error) {
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return false, fmt.Errorf("compile: %w", err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("run: %w", err)
	}
	matched, ok := result.(bool)
	return ok && matched, nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env Env) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		builder.WriteString(s[lastIndex:matchIndexes[0]])

		expression := strings.TrimSpace(s[matchIndexes[2]:matchIndexes[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		builder.WriteString(fmt.Sprintf("%v", result))
		lastIndex = matchIndexes[1]
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env Env) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func Parse(rdr io.Reader, env Env) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		if derr, ok := err.(*toml.DecodeError); ok {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	cfg := new(Config)

	if err := unmarshalConditionalSection(rawConfig, "library", &cfg.Library, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "cli", &cfg.CLI, env); err != nil {
		return nil, err
	}
	if err := unmarshalArraySection(rawConfig, "plugin", &cfg.Plugins); err != nil {
		return nil, err
	}
	if err := unmarshalSection(rawConfig, "submodule", &cfg.Submodules); err != nil {
		return nil, err
	}

	if err := cfg.validate(env); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Load parses and validates a config file from a filepath
func Load(path string, env Env) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(bufio.NewReader(f), env)
}

func (cfg *Config) validate(env Env) error {
	if cfg.Library.Name == "" {
		return errors.New("config: [library] name is required")
	}
	if cfg.Library.Fragment == "" {
		return errors.New("config: [library] fragment is required")
	}

	seen := make(map[string]bool, len(cfg.Plugins))
	for i := range cfg.Plugins {
		p := &cfg.Plugins[i]
		if p.Name == "" {
			return fmt.Errorf("config: plugin #%d has no name", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: plugin %q declared twice", p.Name)
		}
		seen[p.Name] = true

		switch p.State {
		case "", StateEnabled, StateDisabled, StatePending:
		default:
			return fmt.Errorf("config: plugin %q has unknown state %q", p.Name, p.State)
		}
		if p.State == "" {
			p.State = StateEnabled
		}

		if p.When != "" {
			matched, err := evalCondition(p.When, env)
			if err != nil {
				return fmt.Errorf("config: plugin %q when: %w", p.Name, err)
			}
			if !matched && p.State == StateEnabled {
				p.State = StateDisabled
			}
		}
	}

	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Library.SourceRoot == "" {
		cfg.Library.SourceRoot = "vendor/" + cfg.Library.Name
	}
	if cfg.Library.ObjExt == "" {
		cfg.Library.ObjExt = ".o"
	}
	if cfg.CLI.Name == "" {
		cfg.CLI.Name = cfg.Library.Name
	}
	if cfg.CLI.Entry == "" {
		cfg.CLI.Entry = "src/main.c"
	}
	if cfg.CLI.Link == "" {
		cfg.CLI.Link = "shared"
	}
}

// SubmoduleNames returns the declared submodule names, sorted, so that
// callers iterate the map in a stable order.
func (cfg *Config) SubmoduleNames() []string {
	return slices.Sorted(maps.Keys(cfg.Submodules))
}

// RunRequire evaluates the [library] require expression, if any. A
// config whose precondition does not hold refuses generation outright.
func (cfg *Config) RunRequire(env Env) error {
	if cfg.Library.Require == "" {
		return nil
	}

	matched, err := evalCondition(cfg.Library.Require, env)
	if err != nil {
		return fmt.Errorf("config: require for %q: %w", cfg.Library.Name, err)
	}
	if !matched {
		return fmt.Errorf("config: require for %q evaluated false\n%s", cfg.Library.Name, cfg.Library.Require)
	}

	return nil
}

// Env is the data visible to expr conditions in the config file.
type Env struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	basedir    string
}

func NewEnv(basedir string) Env {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return Env{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		basedir:    basedir,
	}
}

// BaseDir is the directory config-relative paths resolve against.
func (env Env) BaseDir() string { return env.basedir }
