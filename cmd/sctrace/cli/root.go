// Package cli implements the sctrace command-line interface using Cobra.
package cli

import (
	"errors"
	"fmt"

	"github.com/majorcontext/sctrace/internal/config"
	"github.com/majorcontext/sctrace/internal/log"
	"github.com/majorcontext/sctrace/internal/ui"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	jsonOut bool
	noColor bool

	showAll     bool
	killOnExit  bool
	stringLimit int
	maxWords    int
	debugDir    string

	// cfg is the effective configuration, resolved before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sctrace [flags] [--] <program> [args...]",
	Short: "sctrace - trace the system calls of a program",
	Long: `sctrace runs a program under ptrace and prints one line per system call
it decodes: file opens (open, openat) and outbound connections (connect),
with their return values. Failed calls show the negative errno unmodified.

Settings come from built-in defaults, then SCTRACE_* environment variables,
then flags. Run "sctrace config" to see the effective values.`,
	Args:          requireProgram,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		ui.SetWriter(cmd.ErrOrStderr())
		if noColor {
			ui.SetColorEnabled(false)
		}

		if err := log.Init(log.Options{
			Verbose:       cfg.Log.Verbose,
			JSONFormat:    cfg.Log.JSON,
			DebugDir:      cfg.Log.DebugDir,
			RetentionDays: cfg.Log.RetentionDays,
			Stderr:        cmd.ErrOrStderr(),
		}); err != nil {
			// Log init failure is non-fatal - fallback to default logger
			ui.Warnf("failed to initialize debug logging: %v", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
	RunE: runTrace,
}

var errNoProgram = errors.New("no program to trace (usage: sctrace [flags] [--] <program> [args...])")

func requireProgram(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return errNoProgram
	}
	return nil
}

// applyFlags copies explicitly set flags over cfg so that flags win over
// environment variables and defaults.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		c.Log.Verbose = verbose
	}
	if flags.Changed("json") {
		c.Log.JSON = jsonOut
	}
	if flags.Changed("debug-dir") {
		c.Log.DebugDir = debugDir
	}
	if flags.Changed("all") {
		c.Trace.ShowAll = showAll
	}
	if flags.Changed("kill-on-exit") {
		c.Trace.KillOnExit = killOnExit
	}
	if flags.Changed("string-limit") {
		c.Trace.StringLimit = stringLimit
	}
	if flags.Changed("max-words") {
		c.Trace.MaxWords = maxWords
	}
}

// ExitError carries the exit status sctrace should terminate with, which
// mirrors the traced program's.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root command. Errors other than *ExitError have already
// been reported to the user when it returns.
func Execute() error {
	err := rootCmd.Execute()
	var exit *ExitError
	if err != nil && !errors.As(err, &exit) {
		ui.Error(err.Error())
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs on stderr)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "log in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&debugDir, "debug-dir", "", "write a JSONL debug log to this directory (env: SCTRACE_DEBUG_DIR)")

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&showAll, "all", "a", false, "also print calls without a decoder, by number (env: SCTRACE_SHOW_ALL)")
	flags.BoolVar(&killOnExit, "kill-on-exit", false, "kill the program if sctrace exits first (env: SCTRACE_KILL_ON_EXIT)")
	flags.IntVarP(&stringLimit, "string-limit", "s", 0, "maximum bytes shown per string argument (env: SCTRACE_STRING_LIMIT, default 4096)")
	flags.IntVar(&maxWords, "max-words", 0, "maximum words read while scanning one string (env: SCTRACE_MAX_WORDS, default 1024)")
	// everything after the program name belongs to the program
	rootCmd.Flags().SetInterspersed(false)
}
