package toolchain

import (
	"os/exec"
	"strings"
	"testing"
)

func TestClassifyFamily(t *testing.T) {
	tests := []struct {
		compiler string
		want     Family
	}{
		{"gcc", FamilyGNU},
		{"g++", FamilyGNU},
		{"/usr/bin/clang++", FamilyGNU},
		{"cc", FamilyGNU},
		{"tcc", FamilyGNU},
		{"x86_64-w64-mingw32-gcc", FamilyGNU},
		{"arm-linux-gnueabihf-g++", FamilyGNU},
		{"cl", FamilyMSVC},
		{"cl.exe", FamilyMSVC},
		{`C:\Program Files\Microsoft Visual Studio\2022\VC\bin\cl.exe`, FamilyMSVC},
		{"clang-cl", FamilyMSVC},
		{"CL.EXE", FamilyMSVC},
		{"myccustomcc", FamilyUnknown},
		{"", FamilyUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.compiler, "linux").Family; got != tt.want {
			t.Errorf("Classify(%q).Family = %v, want %v", tt.compiler, got, tt.want)
		}
	}
}

func TestClassifyOS(t *testing.T) {
	if got := Classify("gcc", "windows").OS; got != OSWindows {
		t.Fatalf("OS = %v, want windows", got)
	}
	for _, osName := range []string{"linux", "darwin", "freebsd", "openbsd"} {
		if got := Classify("gcc", osName).OS; got != OSPOSIX {
			t.Fatalf("Classify(gcc, %q).OS = %v, want posix", osName, got)
		}
	}
}

func TestSupportsPluginLinking(t *testing.T) {
	tests := []struct {
		compiler string
		want     bool
	}{
		{"gcc", true},
		{"clang", true},
		{"weirdcc", true}, // unknown is not a refusal
		{"cl", false},
		{"clang-cl", false},
	}
	for _, tt := range tests {
		p := Classify(tt.compiler, "linux")
		if got := p.SupportsPluginLinking(); got != tt.want {
			t.Errorf("%q SupportsPluginLinking = %v, want %v", tt.compiler, got, tt.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	a := Classify("clang", "darwin")
	b := Classify("clang", "darwin")
	if a != b {
		t.Fatalf("Classify not deterministic: %+v vs %+v", a, b)
	}
}

func TestFamilyString(t *testing.T) {
	tests := map[Family]string{
		FamilyGNU:     "gnu-like",
		FamilyMSVC:    "msvc-like",
		FamilyUnknown: "unknown",
	}
	for f, want := range tests {
		if got := f.String(); got != want {
			t.Errorf("Family(%d).String() = %q, want %q", f, got, want)
		}
	}
}

func TestBannerMajor(t *testing.T) {
	tests := []struct {
		banner string
		want   int
	}{
		{"gcc (Ubuntu 11.4.0-1ubuntu1~22.04) 11.4.0", 11},
		{"clang version 14.0.6", 14},
		{"Microsoft (R) C/C++ Optimizing Compiler Version 19.29.30133 for x64", 19},
		{"no version here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := bannerMajor(tt.banner); got != tt.want {
			t.Errorf("bannerMajor(%q) = %d, want %d", tt.banner, got, tt.want)
		}
	}
}

func TestGateOldGCC(t *testing.T) {
	p := Classify("gcc", "linux")
	warns := Gate(p, "gcc (GCC) 4.8.5")
	if len(warns) != 1 || !strings.Contains(warns[0], "C++11") {
		t.Fatalf("Gate = %v, want one C++11 warning", warns)
	}
}

func TestGateOldMinGW(t *testing.T) {
	p := Classify("x86_64-w64-mingw32-gcc", "windows")
	warns := Gate(p, "gcc (GCC) 7.3.0")
	if len(warns) != 1 || !strings.Contains(warns[0], "import librar") {
		t.Fatalf("Gate = %v, want one import-library warning", warns)
	}
}

func TestGateModernToolchainQuiet(t *testing.T) {
	p := Classify("clang", "linux")
	if warns := Gate(p, "clang version 17.0.1"); len(warns) != 0 {
		t.Fatalf("Gate = %v, want none", warns)
	}
}

func TestGateUnknownFamily(t *testing.T) {
	p := Classify("somecc", "linux")
	warns := Gate(p, "")
	if len(warns) != 1 || !strings.Contains(warns[0], "could not classify") {
		t.Fatalf("Gate = %v, want classification warning", warns)
	}
}

func TestIdentifyRealCompiler(t *testing.T) {
	cc, err := exec.LookPath("gcc")
	if err != nil {
		t.Skip("gcc not found in PATH")
	}
	banner := Identify(Classify(cc, "linux"))
	if banner == "" {
		t.Fatalf("Identify(%s) returned an empty banner", cc)
	}
}
