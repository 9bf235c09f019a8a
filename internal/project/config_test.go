package project

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func testEnv(t *testing.T) Env {
	t.Helper()
	return NewEnv(t.TempDir())
}

const minimalConfig = `
[library]
name = "core"
version = "1.2.3"
fragment = "vendor/core/sources.mk"
`

func TestParseMinimal(t *testing.T) {
	cfg, err := Parse(strings.NewReader(minimalConfig), testEnv(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Library.Name != "core" || cfg.Library.Version != "1.2.3" {
		t.Fatalf("library = %+v", cfg.Library)
	}

	// defaults
	if cfg.Library.SourceRoot != "vendor/core" {
		t.Fatalf("SourceRoot = %q, want vendor/core", cfg.Library.SourceRoot)
	}
	if cfg.Library.ObjExt != ".o" {
		t.Fatalf("ObjExt = %q, want .o", cfg.Library.ObjExt)
	}
	if cfg.CLI.Name != "core" || cfg.CLI.Link != "shared" {
		t.Fatalf("cli defaults = %+v", cfg.CLI)
	}
}

func TestParseRequiresNameAndFragment(t *testing.T) {
	tests := []string{
		"[library]\nfragment = \"x.mk\"\n",
		"[library]\nname = \"core\"\n",
	}
	for _, text := range tests {
		if _, err := Parse(strings.NewReader(text), testEnv(t)); err == nil {
			t.Fatalf("Parse accepted incomplete config:\n%s", text)
		}
	}
}

func TestParsePlugins(t *testing.T) {
	text := minimalConfig + `
[[plugin]]
name = "espeak"
sources = ["plugins/espeak/*.c"]

[[plugin]]
name = "digest"
state = "pending"
sources = ["plugins/digest/*.c"]
vendor = ["plugins/digest/vendor/*.c"]

[[plugin]]
name = "legacy"
state = "disabled"
sources = ["plugins/legacy/*.c"]
`
	cfg, err := Parse(strings.NewReader(text), testEnv(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Plugins) != 3 {
		t.Fatalf("len(Plugins) = %d, want 3", len(cfg.Plugins))
	}

	// declaration order preserved, omitted state defaults to enabled
	if cfg.Plugins[0].Name != "espeak" || cfg.Plugins[0].State != StateEnabled {
		t.Fatalf("plugin 0 = %+v", cfg.Plugins[0])
	}
	if cfg.Plugins[1].State != StatePending {
		t.Fatalf("plugin 1 state = %q, want pending", cfg.Plugins[1].State)
	}
	if cfg.Plugins[2].State != StateDisabled {
		t.Fatalf("plugin 2 state = %q, want disabled", cfg.Plugins[2].State)
	}
}

func TestParseRejectsDuplicatePlugin(t *testing.T) {
	text := minimalConfig + `
[[plugin]]
name = "twice"
[[plugin]]
name = "twice"
`
	if _, err := Parse(strings.NewReader(text), testEnv(t)); err == nil {
		t.Fatal("Parse accepted a duplicate plugin name")
	}
}

func TestParseRejectsUnknownState(t *testing.T) {
	text := minimalConfig + `
[[plugin]]
name = "odd"
state = "maybe"
`
	if _, err := Parse(strings.NewReader(text), testEnv(t)); err == nil {
		t.Fatal("Parse accepted an unknown plugin state")
	}
}

func TestPluginWhenDemotesToDisabled(t *testing.T) {
	text := minimalConfig + `
[[plugin]]
name = "posix_only"
when = 'target_os != "` + runtime.GOOS + `"'
`
	cfg, err := Parse(strings.NewReader(text), testEnv(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Plugins[0].State != StateDisabled {
		t.Fatalf("state = %q, want disabled when the condition is false", cfg.Plugins[0].State)
	}
}

func TestConditionalLibrarySection(t *testing.T) {
	text := `
[library]
name = "core"
fragment = "sources.mk"

[library.'target_os == "` + runtime.GOOS + `"']
obj_ext = ".ooo"
`
	cfg, err := Parse(strings.NewReader(text), testEnv(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Library.ObjExt != ".ooo" {
		t.Fatalf("ObjExt = %q, want the conditional override", cfg.Library.ObjExt)
	}
}

func TestExpressionInterpolation(t *testing.T) {
	text := `
[library]
name = "core"
fragment = "vendor/{{ target_os }}/sources.mk"
`
	cfg, err := Parse(strings.NewReader(text), testEnv(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "vendor/" + runtime.GOOS + "/sources.mk"
	if cfg.Library.Fragment != want {
		t.Fatalf("Fragment = %q, want %q", cfg.Library.Fragment, want)
	}
}

func TestRunRequire(t *testing.T) {
	env := testEnv(t)

	cfg, err := Parse(strings.NewReader(minimalConfig+"require = 'target_os != \"plan9\"'\n"), env)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.RunRequire(env); err != nil {
		t.Fatalf("RunRequire: %v", err)
	}

	cfg, err = Parse(strings.NewReader(minimalConfig+"require = 'target_os == \"plan9\"'\n"), env)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.RunRequire(env); err == nil {
		t.Fatal("RunRequire accepted a false precondition")
	}
}

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"plugins/dsp/b.c", "plugins/dsp/a.c", "plugins/dsp/vendor/fft.c",
		"plugins/dsp/README",
	} {
		path := filepath.Join(dir, filepath.FromSlash(f))
		os.MkdirAll(filepath.Dir(path), 0o755)
		os.WriteFile(path, []byte("x"), 0o644)
	}

	p := &PluginSection{
		Name:    "dsp",
		Sources: []string{"plugins/dsp/*.c"},
		Vendor:  []string{"plugins/dsp/vendor/*.c"},
	}
	got, err := p.CollectSources(dir)
	if err != nil {
		t.Fatalf("CollectSources: %v", err)
	}
	want := []string{"plugins/dsp/a.c", "plugins/dsp/b.c", "plugins/dsp/vendor/fft.c"}
	if !slices.Equal(got, want) {
		t.Fatalf("CollectSources = %v, want %v", got, want)
	}
}
