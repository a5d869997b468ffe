// Command tcc is the Type-C compiler CLI: it compiles a project directory
// into the VM's binary format, scaffolds new projects, and manages the
// standard library clone (spec §6 "CLI").
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/typec-lang/tcc/pkg/compiler"
	"github.com/typec-lang/tcc/pkg/config"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/sourcemap"
	"github.com/typec-lang/tcc/pkg/ui"
)

const version = "0.4.0"

var (
	flagOutput             string
	flagRun                bool
	flagGenerateIR         bool
	flagNoWarnings         bool
	flagNoGenerateBinaries bool
	flagVerbose            bool
)

func main() {
	root := &cobra.Command{
		Use:           "tcc",
		Short:         "Type-C compiler",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		ui.PrintHelp(version)
	})

	compileCmd := &cobra.Command{
		Use:   "compile <dir>",
		Short: "Compile a project directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	compileCmd.Flags().StringVar(&flagOutput, "output", "", "bin output folder (default \"bin\")")
	compileCmd.Flags().BoolVar(&flagRun, "run", false, "invoke the VM on the produced binary")
	compileCmd.Flags().BoolVar(&flagGenerateIR, "generate-ir", false, "also emit IR text + DOT CFG")
	compileCmd.Flags().BoolVar(&flagNoWarnings, "no-warnings", false, "suppress warning logs")
	compileCmd.Flags().BoolVar(&flagNoGenerateBinaries, "no-generate-binaries", false, "type-check only")
	compileCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log pipeline stages to stderr")

	initCmd := &cobra.Command{
		Use:   "init [folder]",
		Short: "Scaffold a new project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}

	stdlibCmd := &cobra.Command{
		Use:   "stdlib <install|update|where>",
		Short: "Manage the standard library clone",
		Args:  cobra.ExactArgs(1),
		RunE:  runStdlib,
	}

	root.AddCommand(compileCmd, initCmd, stdlibCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	projectDir := args[0]
	out := ui.NewBuildOutput()
	out.PrintHeader(version)

	cfg, err := config.Load(projectDir, &config.Config{Build: config.BuildConfig{
		OutputDir:          flagOutput,
		GenerateIR:         flagGenerateIR,
		NoWarnings:         flagNoWarnings,
		NoGenerateBinaries: flagNoGenerateBinaries,
	}})
	if err != nil {
		return err
	}

	entry := "main.tc"
	manifest, err := config.LoadManifest(projectDir)
	if err == nil && manifest.Compiler.Entry != "" {
		entry = manifest.Compiler.Entry
	}

	var log compiler.Logger
	if flagVerbose {
		log = compiler.NewStderrLogger()
	}
	c := compiler.New(compiler.Options{
		ProjectDir: projectDir,
		StdlibDir:  stdlibPath(cfg),
		Entry:      entry,
		Mode:       source.ModeIntellisense,
		GenerateIR: cfg.Build.GenerateIR,
		NoWarnings: cfg.Build.NoWarnings,
		Logger:     log,
	})

	out.PrintCompileStart(filepath.Join(projectDir, entry))
	res := c.Compile()

	if diag := c.RenderDiagnostics(res); diag != "" {
		fmt.Fprint(os.Stderr, diag)
	}
	errCount := len(res.Log.Errors())
	warnCount := len(res.Log.All()) - errCount
	if res.HasErrors() {
		out.PrintSummary(false, errCount, warnCount)
		os.Exit(1)
	}

	outDir := filepath.Join(projectDir, cfg.Build.OutputDir)
	if !cfg.Build.NoGenerateBinaries {
		if !cfg.SourceMap.Enabled {
			res.SourceMap = nil
		}
		if err := c.WriteOutputs(res, outDir); err != nil {
			return err
		}
		if cfg.Build.GenerateIR {
			out.PrintIRDumpHeader(filepath.Join(outDir, "program.ir"))
		}
		if cfg.SourceMap.Enabled {
			if err := sourcemap.Validate(res.SourceMap, "program.map"); err != nil {
				return fmt.Errorf("source map self-check failed: %w", err)
			}
		}
	}
	out.PrintSummary(true, errCount, warnCount)

	if flagRun {
		return runVM(outDir)
	}
	return nil
}

// runVM shells out to the VM named by TYPE_V_PATH (spec §6).
func runVM(outDir string) error {
	vmDir := os.Getenv("TYPE_V_PATH")
	if vmDir == "" {
		return fmt.Errorf("--run requires TYPE_V_PATH to name the VM binary directory")
	}
	vm := exec.Command(filepath.Join(vmDir, "type-v"), filepath.Join(outDir, "program.bin"))
	vm.Stdout = os.Stdout
	vm.Stderr = os.Stderr
	vm.Stdin = os.Stdin
	return vm.Run()
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		return err
	}

	name := filepath.Base(absOrSelf(dir))
	manifest := &config.Manifest{
		Name:     name,
		Version:  "0.1.0",
		Compiler: config.ManifestBody{Target: config.TargetRunnable, Entry: "src/main.tc"},
	}
	if err := config.WriteManifest(dir, manifest); err != nil {
		return err
	}

	mainSrc := "fn main() -> u32 {\n    return 0\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "src", "main.tc"), []byte(mainSrc), 0o644); err != nil {
		return err
	}
	fmt.Printf("initialized project %q in %s\n", name, dir)
	return nil
}

func absOrSelf(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

const stdlibRepo = "https://github.com/typec-lang/stdlib.git"

func runStdlib(cmd *cobra.Command, args []string) error {
	dir := defaultStdlibDir()
	switch args[0] {
	case "where":
		fmt.Println(dir)
		return nil
	case "install":
		if _, err := os.Stat(dir); err == nil {
			fmt.Println("standard library already installed at", dir)
			return nil
		}
		return gitCommand("clone", stdlibRepo, dir)
	case "update":
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("standard library not installed; run `tcc stdlib install` first")
		}
		return gitCommandIn(dir, "pull", "--ff-only")
	default:
		return fmt.Errorf("unknown stdlib subcommand %q (want install, update, or where)", args[0])
	}
}

func defaultStdlibDir() string {
	return filepath.Join(os.Getenv("HOME"), ".tcc", "stdlib")
}

func stdlibPath(cfg *config.Config) string {
	if cfg.Build.StdlibDir != "" {
		return cfg.Build.StdlibDir
	}
	return defaultStdlibDir()
}

func gitCommand(args ...string) error {
	git := exec.Command("git", args...)
	git.Stdout = os.Stdout
	git.Stderr = os.Stderr
	return git.Run()
}

func gitCommandIn(dir string, args ...string) error {
	git := exec.Command("git", args...)
	git.Dir = dir
	git.Stdout = os.Stdout
	git.Stderr = os.Stderr
	return git.Run()
}
