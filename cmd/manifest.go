// postmk manifest [path]
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/postmk-build/postmk/internal/msg"
	"github.com/postmk-build/postmk/internal/vcs"
)

func doManifest(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	basedir, err := filepath.Abs(dir)
	if err != nil {
		msg.Fatal("%v", err)
	}

	n, err := vcs.WriteManifest(basedir)
	if err != nil {
		msg.Fatal("%v", err)
	}
	msg.Info("wrote %s (%d files)", vcs.ManifestFilename, n)
}

var manifestCmd = &cobra.Command{
	Use:   "manifest [project path]",
	Short: "Write the MANIFEST file from the repository index",
	Long:  `Write the MANIFEST file listing every tracked file, sorted, one per line.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doManifest,
}

func init() {
	// postmk manifest subcommand
	rootCmd.AddCommand(manifestCmd)
}
