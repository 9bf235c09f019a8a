package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func scaffoldBumpProject(t *testing.T, configVersion string) string {
	t.Helper()
	dir := t.TempDir()
	config := `[library]
name = "core"
version = "` + configVersion + `"
fragment = "sources.mk"
version_files = ["v.h"]
`
	if err := os.WriteFile(filepath.Join(dir, "Postmk.toml"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "v.h"), []byte("#define CORE_VERSION \"1.0.0\"\n"), 0o644); err != nil {
		t.Fatalf("write v.h: %v", err)
	}
	return dir
}

func TestBumpExplicitVersion(t *testing.T) {
	dir := scaffoldBumpProject(t, "1.5.0")

	doBump(nil, []string{"2.0.0", dir})

	data, err := os.ReadFile(filepath.Join(dir, "v.h"))
	if err != nil {
		t.Fatalf("read v.h: %v", err)
	}
	if !strings.Contains(string(data), `"2.0.0"`) {
		t.Fatalf("v.h = %q, want the argument version", data)
	}
}

func TestBumpDefaultsToConfigVersion(t *testing.T) {
	dir := scaffoldBumpProject(t, "1.5.0")

	// lone non-version argument is the project path
	doBump(nil, []string{dir})

	data, err := os.ReadFile(filepath.Join(dir, "v.h"))
	if err != nil {
		t.Fatalf("read v.h: %v", err)
	}
	if !strings.Contains(string(data), `"1.5.0"`) {
		t.Fatalf("v.h = %q, want the [library] version", data)
	}
}
