// postmk [path], postmk gen [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/postmk-build/postmk/internal/manifest"
	"github.com/postmk-build/postmk/internal/msg"
	"github.com/postmk-build/postmk/internal/postamble"
	"github.com/postmk-build/postmk/internal/project"
	"github.com/postmk-build/postmk/internal/target"
	"github.com/postmk-build/postmk/internal/toolchain"
)

var (
	flagStdout   bool
	flagStatic   bool
	flagCC       string
	flagMakefile string
	flagEmit     EnumValue = NewEnumValue("all", map[string]string{
		"all":   "Emit both the extra rules and the clean list (default)",
		"rules": "Emit only the extra build rules",
		"clean": "Emit only the clean-file list",
	})
)

func doGen(cmd *cobra.Command, args []string) {
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
	if err := cfg.RunRequire(env); err != nil {
		msg.Fatal("%v", err)
	}

	fragPath := filepath.Join(basedir, filepath.FromSlash(cfg.Library.Fragment))
	fragText, err := os.ReadFile(fragPath)
	if err != nil {
		msg.Fatal("read fragment: %v", err)
	}
	m, err := manifest.Parse(string(fragText), manifest.VarNames{
		CXX: cfg.Library.CXXVar,
		C:   cfg.Library.CVar,
	})
	if err != nil {
		msg.Fatal("%v", err)
	}
	msg.Debug("fragment %s: %d C++ units, %d C units", cfg.Library.Fragment, len(m.CXXFiles), len(m.CFiles))

	cc := flagCC
	if cc == "" {
		cc = toolchain.Find(len(m.CXXFiles) > 0)
	}
	if cc == "" {
		msg.Fatal("no usable compiler found; set CC/CXX or pass --cc")
	}
	profile := toolchain.Classify(cc, runtime.GOOS)
	msg.Debug("toolchain: %s (%s, %s)", cc, profile.Family, profile.OS)
	for _, warn := range toolchain.Gate(profile, toolchain.Identify(profile)) {
		msg.Warn("%s", warn)
	}

	opts := target.Options{
		Lib: target.LibSpec{
			Name:       cfg.Library.Name,
			SourceRoot: cfg.Library.SourceRoot,
			ObjExt:     cfg.Library.ObjExt,
		},
		CLITool:  cfg.CLI.Enabled,
		CLIName:  cfg.CLI.Name,
		CLIEntry: cfg.CLI.Entry,
	}
	if flagStatic || cfg.CLI.Link == "objects" {
		opts.LinkMode = target.LinkObjects
	}

	for i := range cfg.Plugins {
		p := &cfg.Plugins[i]
		switch p.State {
		case project.StateDisabled:
			msg.Debug("plugin %s: disabled", p.Name)
			continue
		case project.StatePending:
			msg.Info("plugin %s: declared but not yet available upstream, not built", p.Name)
			continue
		}

		sources, err := p.CollectSources(basedir)
		if err != nil {
			msg.Fatal("%v", err)
		}
		objects := make([]string, 0, len(sources))
		for _, src := range sources {
			objects = append(objects, manifest.ObjectName(src, cfg.Library.ObjExt))
		}
		opts.PluginSet = append(opts.PluginSet, target.Plugin{Name: p.Name, Objects: objects})
	}
	opts.Plugins = len(opts.PluginSet) > 0

	cache := postamble.New(func() (*target.Graph, error) {
		return target.Build(m, profile, opts)
	})
	rules, err := cache.ExtraRules()
	if err != nil {
		msg.Fatal("%v", err)
	}
	clean, err := cache.CleanList()
	if err != nil {
		msg.Fatal("%v", err)
	}

	if flagStdout {
		switch flagEmit.Value() {
		case "rules":
			fmt.Print(rules)
		case "clean":
			fmt.Print(clean)
		default:
			fmt.Print(rules)
			fmt.Print(clean)
		}
		return
	}

	mkPath := filepath.Join(basedir, flagMakefile)
	var text string
	if data, err := os.ReadFile(mkPath); err == nil {
		text = string(data)
	} else if !os.IsNotExist(err) {
		msg.Fatal("read %s: %v", flagMakefile, err)
	}

	switch flagEmit.Value() {
	case "rules":
		text = postamble.SpliceRules(text, rules)
	case "clean":
		text = postamble.SpliceClean(text, clean)
	default:
		text = postamble.Splice(text, rules, clean)
	}

	if err := os.WriteFile(mkPath, []byte(text), 0o644); err != nil {
		msg.Fatal("write %s: %v", flagMakefile, err)
	}
	msg.Info("updated %s", flagMakefile)
}

var rootCmd = &cobra.Command{
	Use:   "postmk [project path]",
	Short: "Makefile postamble generator for native library projects",
	Long: `postmk extends a host-generated Makefile with the link targets the host
tool cannot derive: the vendored core library, its optional CLI tool,
and the plugin set.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doGen,
}

var genCmd = &cobra.Command{
	Use:   "gen [project path]",
	Short: "Generate the extra build rules and clean list",
	Long:  `Generate the extra build rules and clean list. If no project path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGen,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&msg.Verbose, "verbose", "v", false, "Enable debug output")

	addGenFlags(rootCmd)

	// postmk gen subcommand
	rootCmd.AddCommand(genCmd)
	addGenFlags(genCmd)
}

func addGenFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagStdout, "stdout", false, "Print the generated text instead of splicing the makefile")
	cmd.Flags().BoolVar(&flagStatic, "static", false, "Link the CLI tool against the core object list instead of the shared library")
	cmd.Flags().StringVar(&flagCC, "cc", "", "Compiler to classify (default: CC/CXX, then PATH)")
	cmd.Flags().StringVarP(&flagMakefile, "makefile", "f", "Makefile", "Host makefile to splice into")
	cmd.Flags().VarP(&flagEmit, "emit", "e", "What to emit, one of "+flagEmit.HelpString())
	cmd.RegisterFlagCompletionFunc("emit", flagEmit.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
