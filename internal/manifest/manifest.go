// Package manifest extracts the core library's source lists from the
// library's own externally-owned makefile fragment. The fragment is not
// under our control: if the variables we expect are gone, the upstream
// layout changed and generation must stop.
package manifest

import (
	"bufio"
	"fmt"
	"path"
	"strings"
)

// Variable names the upstream fragment uses by default.
const (
	DefaultCXXVar = "CXX_SOURCES"
	DefaultCVar   = "C_SOURCES"
)

// VarNames selects which assignments to read. Zero fields fall back to
// the defaults. Names are case-sensitive.
type VarNames struct {
	CXX string
	C   string
}

func (v VarNames) withDefaults() VarNames {
	if v.CXX == "" {
		v.CXX = DefaultCXXVar
	}
	if v.C == "" {
		v.C = DefaultCVar
	}
	return v
}

// Manifest holds the two ordered source lists read from the fragment.
type Manifest struct {
	CXXFiles []string
	CFiles   []string
}

// FormatError reports a required variable that is missing or has an
// empty value. Either way the fragment cannot describe a buildable
// library, so parsing produces no partial result.
type FormatError struct {
	Variable string
	Empty    bool
}

func (e *FormatError) Error() string {
	if e.Empty {
		return fmt.Sprintf("build fragment: variable %s has an empty value", e.Variable)
	}
	return fmt.Sprintf("build fragment: variable %s not found (upstream format changed?)", e.Variable)
}

// Parse reads the fragment text and returns both source lists. An
// assignment's value may span lines joined by a trailing backslash;
// tokens are whitespace-delimited. Later assignments to the same
// variable win, duplicates and empty tokens are dropped, and order is
// preserved. Parse is pure: no file or process state is touched.
func Parse(text string, vars VarNames) (*Manifest, error) {
	vars = vars.withDefaults()

	values := map[string][]string{}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := sc.Text()
		if name, first, ok := splitAssignment(line); ok && (name == vars.CXX || name == vars.C) {
			value := strings.TrimRight(first, " \t")
			for strings.HasSuffix(value, `\`) {
				value = strings.TrimSuffix(value, `\`)
				if !sc.Scan() {
					break
				}
				value += " " + strings.TrimRight(sc.Text(), " \t")
			}
			values[name] = dedup(strings.Fields(value))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("build fragment: %w", err)
	}

	for _, name := range []string{vars.CXX, vars.C} {
		tokens, ok := values[name]
		if !ok {
			return nil, &FormatError{Variable: name}
		}
		if len(tokens) == 0 {
			return nil, &FormatError{Variable: name, Empty: true}
		}
	}

	return &Manifest{
		CXXFiles: values[vars.CXX],
		CFiles:   values[vars.C],
	}, nil
}

// splitAssignment recognizes `NAME = value` lines, including the `:=`,
// `?=` and `+=` spellings make allows. Comment lines are skipped.
func splitAssignment(line string) (name, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	eq := strings.Index(trimmed, "=")
	if eq <= 0 {
		return "", "", false
	}
	name = trimmed[:eq]
	for _, op := range []string{":", "?", "+"} {
		name = strings.TrimSuffix(name, op)
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	return name, trimmed[eq+1:], true
}

func dedup(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Objects maps every source file to its object path: the extension is
// rewritten to objExt and the core library's source root is prepended.
// C++ units come first, then C units, matching the fragment's two
// declaration blocks. Paths use forward slashes, which is what the host
// makefile expects on every platform we emit for.
func (m *Manifest) Objects(sourceRoot, objExt string) []string {
	objs := make([]string, 0, len(m.CXXFiles)+len(m.CFiles))
	for _, src := range append(append([]string{}, m.CXXFiles...), m.CFiles...) {
		objs = append(objs, path.Join(sourceRoot, swapExt(src, objExt)))
	}
	return objs
}

func swapExt(file, ext string) string {
	old := path.Ext(file)
	return file[:len(file)-len(old)] + ext
}

// ObjectName rewrites a single source path's extension to ext. Used for
// translation units that live outside the fragment (the CLI entry,
// plugin sources).
func ObjectName(file, ext string) string {
	return swapExt(file, ext)
}
