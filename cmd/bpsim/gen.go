package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/bpsim/benchmarks"
	"github.com/sarchlab/bpsim/trace"
)

func newGenCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "gen <workload> <out>",
		Short: "Write a synthetic workload to a trace file",
		Long: `Gen writes one of the built-in workloads in the trace text format.
Output names ending in .gz are gzip-compressed.
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, w := range benchmarks.GetWorkloads() {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", w.Name, w.Description)
				}
				return nil
			}
			return generate(cmd, args[0], args[1])
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List the built-in workloads")

	return cmd
}

func generate(cmd *cobra.Command, name, out string) error {
	w, ok := benchmarks.FindWorkload(name)
	if !ok {
		return fmt.Errorf("unknown workload %q", name)
	}

	records, err := w.Records()
	if err != nil {
		return err
	}
	if err := trace.Save(out, records); err != nil {
		return err
	}

	loggerFor(cmd).Info("trace written", "workload", name, "path", out, "branches", len(records))
	return nil
}
