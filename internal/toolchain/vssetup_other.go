//go:build !windows

package toolchain

// The Visual Studio setup API only exists on windows.
func findMSVC() string { return "" }
