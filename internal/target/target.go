// Package target synthesizes the link-target graph: the core shared
// library, the optional CLI tool, and the plugin set. Construction is a
// pure function of the parsed manifest, the toolchain profile, and the
// requested features. The graph is built exactly once per generation
// run and never mutated afterwards; rendering it to host-tool text is
// the postamble package's job.
package target

import (
	"fmt"
	"slices"
	"strings"

	"github.com/postmk-build/postmk/internal/manifest"
	"github.com/postmk-build/postmk/internal/toolchain"
)

// Image version pair stamped into windows core-library builds.
const (
	imageVersionMajor = "2"
	imageVersionMinor = "0"
)

// Placeholder tokens in a Recipe. They are substituted only when the
// recipe is rendered, so recipe construction stays independent of the
// host tool's syntax.
const (
	OutputSlot = "{output}"
	InputsSlot = "{inputs}"
)

// Recipe is one link command as an argument-token list. Tokens equal to
// OutputSlot or InputsSlot are filled in at render time.
type Recipe struct {
	Args []string
}

// Render substitutes the placeholders and joins the tokens into the
// final command line.
func (r Recipe) Render(output string, inputs []string) string {
	parts := make([]string, 0, len(r.Args)+len(inputs))
	for _, arg := range r.Args {
		switch arg {
		case OutputSlot:
			parts = append(parts, output)
		case InputsSlot:
			parts = append(parts, inputs...)
		default:
			parts = append(parts, arg)
		}
	}
	return strings.Join(parts, " ")
}

// Target is one link output: the core library, the CLI tool, or a
// plugin.
type Target struct {
	Name     string
	Output   string
	Objects  []string  // object files this target links, in order
	Deps     []*Target // targets that must be built first
	Recipe   Recipe
	Optional bool // feature-gated (CLI tool, plugins)

	// SideArtifacts are extra files the link step produces alongside
	// Output (the windows import library).
	SideArtifacts []string

	// OmitDepArtifacts keeps dependency outputs off the link line. The
	// object-link CLI mode sets it: the core's raw objects are carried
	// in Objects instead, while the dependency edge itself stays.
	OmitDepArtifacts bool
}

// LinkInputs is what the recipe's InputsSlot expands to: the target's
// own objects followed by the outputs of the targets it depends on,
// unless the target links its dependency's objects directly.
func (t *Target) LinkInputs() []string {
	inputs := slices.Clone(t.Objects)
	if t.OmitDepArtifacts {
		return inputs
	}
	for _, dep := range t.Deps {
		inputs = append(inputs, dep.linkArtifact())
	}
	return inputs
}

// linkArtifact is the file a dependent target names on its link line:
// the import library on windows, the library itself elsewhere.
func (t *Target) linkArtifact() string {
	if len(t.SideArtifacts) > 0 {
		return t.SideArtifacts[0]
	}
	return t.Output
}

// Prerequisites is the full file list a host-tool rule for this target
// depends on: objects plus each dependency's primary output.
func (t *Target) Prerequisites() []string {
	prereqs := slices.Clone(t.Objects)
	for _, dep := range t.Deps {
		prereqs = append(prereqs, dep.Output)
	}
	return prereqs
}

// Graph is the ordered target collection plus the accumulated cleanup
// list. Read-only after Build returns it.
type Graph struct {
	Targets    []*Target
	CleanFiles []string
}

// Core returns the core-library target, always the first in the graph.
func (g *Graph) Core() *Target { return g.Targets[0] }

// Mode selects how the CLI tool links against the core library.
type Mode int

const (
	// LinkShared links the tool against the built shared library by
	// path. This is the mode the tool ships with.
	LinkShared Mode = iota
	// LinkObjects links the tool against the core library's raw object
	// list instead of the library artifact.
	LinkObjects
)

// Plugin describes one requested plugin: its name and its own
// translation units (including any vendored third-party units),
// already rewritten to object paths, in declaration order.
type Plugin struct {
	Name    string
	Objects []string
}

// LibSpec carries the core library's identity into graph construction.
type LibSpec struct {
	Name       string
	SourceRoot string // prefix for manifest object paths
	ObjExt     string // object-file extension, ".o" if empty
}

// Options enumerates the requested optional targets and how to link
// them.
type Options struct {
	Lib      LibSpec
	CLITool  bool
	CLIName  string // defaults to Lib.Name
	CLIEntry string // the tool's entry translation unit, source path
	LinkMode Mode
	Plugins  bool
	// PluginSet is consumed in declaration order; the order of the
	// resulting targets is exactly this order.
	PluginSet []Plugin
}

// UnsupportedToolchainError reports a requested feature the classified
// toolchain cannot provide. Fatal: the feature was asked for, so it
// must fail loudly rather than be skipped.
type UnsupportedToolchainError struct {
	Feature string
	Family  toolchain.Family
}

func (e *UnsupportedToolchainError) Error() string {
	return fmt.Sprintf("%s requested, but a %s toolchain cannot link it", e.Feature, e.Family)
}

// InvalidTargetError reports a target constructed in violation of the
// graph invariants. It indicates a construction bug, not bad user
// input.
type InvalidTargetError struct {
	Target string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Target, e.Reason)
}

// Build constructs the complete target graph, or no graph at all: on
// any failure the partial work is discarded. Order is canonical and
// reproducible: core library, then the CLI tool if requested, then
// plugins in declaration order.
func Build(m *manifest.Manifest, profile toolchain.Profile, opts Options) (*Graph, error) {
	if m == nil {
		panic("target.Build: manifest not resolved")
	}
	if opts.Lib.ObjExt == "" {
		opts.Lib.ObjExt = ".o"
	}

	core, err := buildCore(m, profile, opts.Lib)
	if err != nil {
		return nil, err
	}
	targets := []*Target{core}

	if opts.CLITool {
		cli, err := buildCLI(core, profile, opts)
		if err != nil {
			return nil, err
		}
		targets = append(targets, cli)
	}

	if opts.Plugins {
		if !profile.SupportsPluginLinking() {
			return nil, &UnsupportedToolchainError{Feature: "plugin set", Family: profile.Family}
		}
		for _, p := range opts.PluginSet {
			pt, err := buildPlugin(p, core, profile)
			if err != nil {
				return nil, err
			}
			targets = append(targets, pt)
		}
	}

	if err := checkAcyclic(targets); err != nil {
		return nil, err
	}

	return &Graph{Targets: targets, CleanFiles: collectCleanFiles(targets)}, nil
}

func buildCore(m *manifest.Manifest, profile toolchain.Profile, lib LibSpec) (*Target, error) {
	if profile.Family == toolchain.FamilyMSVC {
		return nil, &UnsupportedToolchainError{Feature: "core shared library", Family: profile.Family}
	}

	objects := m.Objects(lib.SourceRoot, lib.ObjExt)
	if len(objects) == 0 {
		return nil, &InvalidTargetError{Target: lib.Name, Reason: "no objects"}
	}

	t := &Target{
		Name:    lib.Name,
		Objects: objects,
	}

	// Unknown families get the GNU-style recipe: a POSIX cc driver is
	// the only safe assumption left once cl has been ruled out.
	if profile.OS == toolchain.OSWindows {
		t.Output = lib.Name + ".dll"
		implib := "lib" + lib.Name + ".dll.a"
		t.SideArtifacts = []string{implib}
		t.Recipe = Recipe{Args: []string{
			profile.Compiler, "-shared", "-o", OutputSlot, InputsSlot,
			"-Wl,--out-implib," + implib,
			"-Wl,--major-image-version," + imageVersionMajor,
			"-Wl,--minor-image-version," + imageVersionMinor,
		}}
	} else {
		t.Output = "lib" + lib.Name + ".so"
		t.Recipe = Recipe{Args: []string{
			profile.Compiler, "-shared", "-o", OutputSlot, InputsSlot,
		}}
	}

	return t, nil
}

func buildCLI(core *Target, profile toolchain.Profile, opts Options) (*Target, error) {
	name := opts.CLIName
	if name == "" {
		name = opts.Lib.Name
	}
	if opts.CLIEntry == "" {
		return nil, &InvalidTargetError{Target: name, Reason: "no entry translation unit"}
	}

	t := &Target{
		Name:     name,
		Output:   name,
		Objects:  []string{manifest.ObjectName(opts.CLIEntry, opts.Lib.ObjExt)},
		Deps:     []*Target{core},
		Optional: true,
		Recipe: Recipe{Args: []string{
			profile.Compiler, "-o", OutputSlot, InputsSlot,
		}},
	}
	if profile.OS == toolchain.OSWindows {
		t.Output = name + ".exe"
	}

	// The two link modes are mutually exclusive: by library path, or by
	// the core's raw object list with no library artifact on the line.
	// The dependency edge on core holds in both.
	if opts.LinkMode == LinkObjects {
		t.Objects = append(t.Objects, core.Objects...)
		t.OmitDepArtifacts = true
	}

	return t, nil
}

func buildPlugin(p Plugin, core *Target, profile toolchain.Profile) (*Target, error) {
	if len(p.Objects) == 0 {
		return nil, &InvalidTargetError{Target: p.Name, Reason: "plugin declares no objects"}
	}

	output := p.Name + ".so"
	if profile.OS == toolchain.OSWindows {
		output = p.Name + ".dll"
	}

	return &Target{
		Name:     p.Name,
		Output:   output,
		Objects:  slices.Clone(p.Objects),
		Deps:     []*Target{core},
		Optional: true,
		Recipe: Recipe{Args: []string{
			profile.Compiler, "-shared", "-o", OutputSlot, InputsSlot,
		}},
	}, nil
}

// collectCleanFiles gathers every object, output, and side artifact in
// construction order, each file once.
func collectCleanFiles(targets []*Target) []string {
	var files []string
	seen := make(map[string]bool)
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	for _, t := range targets {
		for _, obj := range t.Objects {
			add(obj)
		}
		add(t.Output)
		for _, side := range t.SideArtifacts {
			add(side)
		}
	}
	return files
}

// checkAcyclic validates the dependency edges with a Kahn pass. A cycle
// or an edge to a target outside the graph is a construction bug.
func checkAcyclic(targets []*Target) error {
	known := make(map[*Target]bool, len(targets))
	for _, t := range targets {
		known[t] = true
	}

	inDegree := make(map[*Target]int, len(targets))
	dependents := make(map[*Target][]*Target)
	for _, t := range targets {
		for _, dep := range t.Deps {
			if !known[dep] {
				return &InvalidTargetError{Target: t.Name, Reason: fmt.Sprintf("dependency %q is not in the graph", dep.Name)}
			}
			dependents[dep] = append(dependents[dep], t)
			inDegree[t]++
		}
	}

	var queue []*Target
	for _, t := range targets {
		if inDegree[t] == 0 {
			queue = append(queue, t)
		}
	}

	resolved := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		resolved++
		for _, v := range dependents[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if resolved != len(targets) {
		return &InvalidTargetError{Target: targets[0].Name, Reason: "dependency cycle"}
	}
	return nil
}
