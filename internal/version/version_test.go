package version

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "version.h")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRewriteDefine(t *testing.T) {
	path := writeTemp(t, "#define CORE_VERSION \"1.2.3\"\n#define CORE_NAME \"core\"\n")

	changed, diff, err := Rewrite(path, "1.3.0")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !changed {
		t.Fatal("Rewrite reported no change")
	}
	if diff == "" {
		t.Fatal("Rewrite produced no diff summary")
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `#define CORE_VERSION "1.3.0"`) {
		t.Fatalf("file = %q", data)
	}
	if !strings.Contains(string(data), `#define CORE_NAME "core"`) {
		t.Fatalf("unrelated define disturbed: %q", data)
	}
}

func TestRewriteAssignment(t *testing.T) {
	path := writeTemp(t, "VERSION = \"0.9.0\"\n")

	changed, _, err := Rewrite(path, "1.0.0")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !changed {
		t.Fatal("Rewrite reported no change")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "VERSION = \"1.0.0\"\n" {
		t.Fatalf("file = %q", data)
	}
}

func TestRewriteAlreadyCurrent(t *testing.T) {
	content := "#define CORE_VERSION \"2.0.0\"\n"
	path := writeTemp(t, content)

	info, _ := os.Stat(path)
	before := info.ModTime()

	changed, diff, err := Rewrite(path, "2.0.0")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if changed || diff != "" {
		t.Fatalf("no-op rewrite reported changed=%v diff=%q", changed, diff)
	}

	info, _ = os.Stat(path)
	if !info.ModTime().Equal(before) {
		t.Fatal("no-op rewrite touched the file")
	}
	data, _ := os.ReadFile(path)
	if string(data) != content {
		t.Fatalf("file = %q, want untouched", data)
	}
}

func TestRewriteRejectsBadVersion(t *testing.T) {
	path := writeTemp(t, "#define CORE_VERSION \"1.0.0\"\n")
	for _, v := range []string{"", "abc", "1", "v1.2.3"} {
		if _, _, err := Rewrite(path, v); err == nil {
			t.Fatalf("Rewrite(%q) did not fail", v)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		v    string
		want bool
	}{
		{"1.2.3", true},
		{"0.1", true},
		{"1.2.3-rc1", true},
		{"1", false},
		{"v1.2.3", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.v); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestRewriteAll(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.h"), []byte("#define A_VERSION \"1.0.0\"\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.h"), []byte("#define B_VERSION \"2.0.0\"\n"), 0o644)

	changes, err := RewriteAll(dir, []string{"a.h", "b.h"}, "2.0.0")
	if err != nil {
		t.Fatalf("RewriteAll: %v", err)
	}
	var files []string
	for _, c := range changes {
		files = append(files, c.File)
	}
	if !slices.Equal(files, []string{"a.h"}) {
		t.Fatalf("changed = %v, want [a.h]", files)
	}
}

func TestRewriteAllCarriesDiffs(t *testing.T) {
	// Each Change must bring its display diff along; the rewrite is
	// silent otherwise.
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "v.h"), []byte("#define V_VERSION \"1.0.0\"\n"), 0o644)

	changes, err := RewriteAll(dir, []string{"v.h"}, "1.1.0")
	if err != nil {
		t.Fatalf("RewriteAll: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	if changes[0].Diff == "" {
		t.Fatal("Change.Diff is empty")
	}
	if !strings.Contains(changes[0].Diff, "1.1.0") {
		t.Fatalf("diff does not show the new version: %q", changes[0].Diff)
	}
}
