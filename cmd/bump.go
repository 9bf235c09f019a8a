// postmk bump [version] [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/postmk-build/postmk/internal/msg"
	"github.com/postmk-build/postmk/internal/project"
	"github.com/postmk-build/postmk/internal/version"
)

func doBump(cmd *cobra.Command, args []string) {
	dir := "."
	var newVersion string
	switch len(args) {
	case 2:
		newVersion, dir = args[0], args[1]
	case 1:
		// a lone argument that is not a version is the project path
		if version.Valid(args[0]) {
			newVersion = args[0]
		} else {
			dir = args[0]
		}
	}
	basedir, err := filepath.Abs(dir)
	if err != nil {
		msg.Fatal("%v", err)
	}

	env := project.NewEnv(basedir)
	cfg, err := project.Load(filepath.Join(basedir, project.ConfigName), env)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if newVersion == "" {
		newVersion = cfg.Library.Version
	}
	if newVersion == "" {
		msg.Fatal("no version given and [library] version is not set")
	}
	if !version.Valid(newVersion) {
		msg.Fatal("%q is not a semantic version", newVersion)
	}
	if len(cfg.Library.VersionFiles) == 0 {
		msg.Fatal("no version_files declared in [library]")
	}

	changes, err := version.RewriteAll(basedir, cfg.Library.VersionFiles, newVersion)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if len(changes) == 0 {
		msg.Info("all version constants already at %s", newVersion)
		return
	}
	for _, c := range changes {
		msg.Info("rewrote %s", c.File)
		fmt.Fprint(os.Stderr, c.Diff)
		if !strings.HasSuffix(c.Diff, "\n") {
			fmt.Fprintln(os.Stderr)
		}
	}
	if cfg.Library.Version != "" && cfg.Library.Version != newVersion {
		msg.Warn("Postmk.toml [library] version is %s; update it to match", cfg.Library.Version)
	}
}

var bumpCmd = &cobra.Command{
	Use:   "bump [version] [project path]",
	Short: "Rewrite the version constants in the declared source files",
	Long:  `Rewrite the version constants in the declared source files. With no version argument, the [library] version from Postmk.toml is used.`,
	Args:  cobra.MaximumNArgs(2),
	Run:   doBump,
}

func init() {
	// postmk bump subcommand
	rootCmd.AddCommand(bumpCmd)
}
