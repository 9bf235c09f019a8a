package toolchain

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Identify obtains the compiler's version banner, or "" if the compiler
// cannot be run. MSVC drivers print their banner when invoked with no
// arguments; everything else understands --version.
func Identify(p Profile) string {
	var cmd *exec.Cmd
	if p.Family == FamilyMSVC {
		cmd = exec.Command(p.Compiler)
	} else {
		cmd = exec.Command(p.Compiler, "--version")
	}
	out, err := cmd.CombinedOutput()
	if len(out) == 0 && err != nil {
		return ""
	}
	banner, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(banner)
}

var versionRE = regexp.MustCompile(`(\d+)\.(\d+)(?:\.\d+)?`)

// bannerMajor pulls the leading major version out of a banner line.
// Returns 0 when no version is recognizable.
func bannerMajor(banner string) int {
	m := versionRE.FindStringSubmatch(banner)
	if m == nil {
		return 0
	}
	major, _ := strconv.Atoi(m[1])
	return major
}

// Gate returns advisory warnings for toolchains that are classified fine
// but known to be troublesome for shared-library work. Warnings never
// stop generation; the profile alone decides what is legal.
func Gate(p Profile, banner string) []string {
	var warns []string

	if p.Family == FamilyUnknown {
		warns = append(warns, fmt.Sprintf("could not classify compiler %q; assuming a POSIX driver", p.Compiler))
		return warns
	}

	major := bannerMajor(banner)
	if major == 0 {
		return warns
	}

	if p.Family == FamilyGNU && strings.Contains(banner, "gcc") && major < 5 {
		warns = append(warns, fmt.Sprintf("gcc %d predates complete C++11 support; the core library may not compile", major))
	}
	if p.Family == FamilyGNU && p.OS == OSWindows && major < 8 {
		warns = append(warns, fmt.Sprintf("mingw toolchains before gcc 8 have been seen to emit stale import libraries (found %d)", major))
	}

	return warns
}
