package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/eleven-am/conformer"
	"github.com/eleven-am/conformer/internal/config"
	"github.com/eleven-am/conformer/internal/store"
)

func newEngine(g *globalFlags) *conformer.Engine {
	opts := conformer.OptionsFromEnv()
	if g.hwAccel != "" {
		opts.HWAccel = g.hwAccel
	}
	return conformer.NewEngine(opts)
}

func loadPolicy(path string) (conformer.Policy, error) {
	if path == "" {
		return conformer.Policy{}, nil
	}
	return config.LoadPolicy(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newProbeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print the stream inventory of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := newEngine(g).Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), inv)
		},
	}
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	var policyPath string

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Decide every stream without encoding anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadPolicy(policyPath)
			if err != nil {
				return err
			}
			plan, err := newEngine(g).Plan(cmd.Context(), args[0], policy)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().StringVarP(&policyPath, "policy", "p", "", "policy file (YAML)")
	return cmd
}

func newProcessCmd(g *globalFlags) *cobra.Command {
	var (
		policyPath string
		outDir     string
		progress   bool
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Conform a file and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := loadPolicy(policyPath)
			if err != nil {
				return err
			}
			if progress {
				stderr := cmd.ErrOrStderr()
				policy = policy.With(conformer.WithProgress(func(f float64) {
					fmt.Fprintf(stderr, "progress %5.1f%%\n", f*100)
				}))
			}

			fs, err := store.NewFS(outDir)
			if err != nil {
				return err
			}
			handle, err := newEngine(g).ProcessTo(cmd.Context(), args[0], policy, fs)
			if err != nil {
				return err
			}
			path, err := fs.Path(handle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&policyPath, "policy", "p", "", "policy file (YAML)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&progress, "progress", false, "print progress to stderr")
	return cmd
}
