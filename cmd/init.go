// postmk init [name]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/postmk-build/postmk/internal/msg"
	"github.com/postmk-build/postmk/internal/project"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

// initIn scaffolds a project in an existing directory
func initIn(dir, name string) {
	writefile(`[library]
name = "`+name+`"
version = "0.1.0"
source_root = "vendor/`+name+`"
fragment = "vendor/`+name+`/sources.mk"

[cli]
enabled = true
entry = "src/main.c"

# [[plugin]]
# name = "example"
# sources = ["plugins/example/*.c"]

# [submodule.`+name+`]
# url = "https://example.org/`+name+`.git"
# path = "vendor/`+name+`"
# branch = "main"
`, dir, project.ConfigName)

	mkdir(dir, "src")
	mkdir(dir, "vendor", name)

	// a stand-in fragment until `postmk sync` fetches the real library
	writefile(`CXX_SOURCES = `+name+`.cpp
C_SOURCES = `+name+`_compat.c
`, dir, "vendor", name, "sources.mk")

	writefile(`#include <stdio.h>

int main(void) {
    puts("`+name+`");
    return 0;
}
`, dir, "src", "main.c")

	fmt.Printf("You can now run %s against your host-generated Makefile.\n", color.HiCyanString("postmk "+dir))
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Scaffold a postmk project in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0])
	},
}

func init() {
	// postmk init subcommand
	rootCmd.AddCommand(initCmd)
}
