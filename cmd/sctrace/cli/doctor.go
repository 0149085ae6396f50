package cli

import (
	"fmt"

	"github.com/majorcontext/sctrace/internal/doctor"
	"github.com/majorcontext/sctrace/internal/trace"
	"github.com/majorcontext/sctrace/internal/ui"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether this machine can trace programs",
	Long: `Displays diagnostic information for debugging sctrace itself.

This command shows:
- sctrace version, platform and kernel
- the Yama ptrace_scope setting and whether it allows tracing
- the system calls decoded in depth`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Bold("sctrace doctor"))
	fmt.Fprintln(out)

	reg := doctor.NewRegistry()
	reg.Register(doctor.NewPlatformSection(Version()))
	reg.Register(doctor.NewPtraceSection())
	reg.Register(&doctor.DecodersSection{Names: trace.DecoderNames()})

	if failed := reg.Print(out); failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}
