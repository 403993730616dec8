// Command conform probes, plans and conforms media files against a policy file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eleven-am/conformer/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	logLevel string
	hwAccel  string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "conform",
		Short:         "Conform media files to a container and codec policy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Configure(log.Config{Level: g.logLevel, Output: cmd.ErrOrStderr()})
		},
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")
	root.PersistentFlags().StringVar(&g.hwAccel, "hwaccel", "", "hardware encoder: none, auto, cuda, qsv, videotoolbox, vaapi")

	root.AddCommand(
		newProbeCmd(&g),
		newPlanCmd(&g),
		newProcessCmd(&g),
	)
	return root
}
