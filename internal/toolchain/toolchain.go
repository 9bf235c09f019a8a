// Package toolchain resolves the compiler identity and operating system
// into the capability profile the rest of the generator consumes. All
// platform and compiler branching lives here; downstream code only ever
// looks at the resolved profile.
package toolchain

import (
	"path"
	"strings"
)

// Family is the compiler classification.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyGNU            // gcc, clang, mingw crosses: GNU-style driver flags
	FamilyMSVC           // cl.exe-style drivers
)

func (f Family) String() string {
	switch f {
	case FamilyGNU:
		return "gnu-like"
	case FamilyMSVC:
		return "msvc-like"
	}
	return "unknown"
}

// OS is the operating-system classification.
type OS int

const (
	OSPOSIX OS = iota
	OSWindows
)

func (o OS) String() string {
	if o == OSWindows {
		return "windows"
	}
	return "posix"
}

// Profile is the resolved toolchain identity for one generation run.
// It is computed once and read-only afterwards.
type Profile struct {
	Family   Family
	OS       OS
	Compiler string // the identity Classify was given, verbatim
}

var msvcDrivers = map[string]bool{
	"cl":       true,
	"clang-cl": true,
	"icl":      true,
}

var gnuDrivers = map[string]bool{
	"cc":      true,
	"c++":     true,
	"gcc":     true,
	"g++":     true,
	"clang":   true,
	"clang++": true,
	"tcc":     true,
	"icc":     true,
	"icpc":    true,
	"icx":     true,
	"icpx":    true,
}

// Classify maps a compiler identity (name or full path) and an OS
// identifier (runtime.GOOS or an override) to a Profile. The result is
// a pure function of its inputs.
func Classify(compiler, osName string) Profile {
	p := Profile{Compiler: compiler, OS: OSPOSIX}
	if osName == "windows" {
		p.OS = OSWindows
	}

	// normalize both separator styles so a windows path classifies the
	// same no matter where the generator runs
	base := strings.ToLower(path.Base(strings.ReplaceAll(compiler, `\`, "/")))
	base = strings.TrimSuffix(base, ".exe")

	switch {
	case msvcDrivers[base]:
		p.Family = FamilyMSVC
	case gnuDrivers[base]:
		p.Family = FamilyGNU
	case strings.Contains(base, "mingw"),
		strings.HasSuffix(base, "-gcc"),
		strings.HasSuffix(base, "-g++"),
		strings.HasSuffix(base, "-clang"),
		strings.HasSuffix(base, "-clang++"):
		// cross drivers like x86_64-w64-mingw32-gcc
		p.Family = FamilyGNU
	default:
		p.Family = FamilyUnknown
	}

	return p
}

// SupportsPluginLinking reports whether the toolchain can author the
// shared objects our plugins are. Only the MSVC family cannot; asking
// it to is a configuration error the caller must refuse, not skip.
func (p Profile) SupportsPluginLinking() bool {
	return p.Family != FamilyMSVC
}
