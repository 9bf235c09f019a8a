// postmk sync [path]
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/postmk-build/postmk/internal/msg"
	"github.com/postmk-build/postmk/internal/project"
	"github.com/postmk-build/postmk/internal/vcs"
)

func doSync(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
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
	if len(cfg.Submodules) == 0 {
		msg.Info("no submodules declared")
		return
	}

	mods := make([]vcs.Submodule, 0, len(cfg.Submodules))
	for _, name := range cfg.SubmoduleNames() {
		sub := cfg.Submodules[name]
		mods = append(mods, vcs.Submodule{
			Name:   name,
			URL:    sub.URL,
			Path:   sub.Path,
			Branch: sub.Branch,
		})
	}

	if err := vcs.Sync(basedir, mods); err != nil {
		msg.Fatal("%v", err)
	}
	msg.Info("synced %d submodules", len(mods))
}

var syncCmd = &cobra.Command{
	Use:   "sync [project path]",
	Short: "Clone or update the declared submodules",
	Args:  cobra.MaximumNArgs(1),
	Run:   doSync,
}

func init() {
	// postmk sync subcommand
	rootCmd.AddCommand(syncCmd)
}
