package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"sarchain/internal/artifact"
	"sarchain/internal/stages"
	"sarchain/internal/workflow"
)

func newCoregisterCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "coregister",
		Short: "Split, orbit-correct, and coregister every configured scene against the earliest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(runCtx context.Context, mgr *workflow.Manager) error {
				result, err := mgr.Coregister(runCtx)
				if err != nil {
					return err
				}
				printArtifacts(cmd.OutOrStdout(), result.Artifacts())
				return nil
			})
		},
	}
}

func newFilterCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [interferogram.dim...]",
		Short: "Multilook and Goldstein-filter interferograms",
		Long:  "Multilook and Goldstein-filter the given interferograms. With no arguments the interferograms of the configured run are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(runCtx context.Context, mgr *workflow.Manager) error {
				written, err := mgr.Filter(runCtx, args...)
				printArtifacts(cmd.OutOrStdout(), written)
				return err
			})
		},
	}
}

func newUnwrapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unwrap",
		Short: "Export for SNAPHU and run the generated unwrapping command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(runCtx context.Context, mgr *workflow.Manager) error {
				report, err := mgr.Unwrap(runCtx)
				out := cmd.OutOrStdout()
				if report.WorkDir != "" {
					fmt.Fprintf(out, "Work directory: %s\n", report.WorkDir)
				}
				if report.Command != "" {
					fmt.Fprintf(out, "Command: %s\n", report.Command)
				}
				fmt.Fprintf(out, "SNAPHU ran: %s\n", yesNo(report.Ran))
				if report.Ran {
					fmt.Fprintf(out, "Exit code: %d\n", report.Result.ExitCode)
				}
				return err
			})
		},
	}
}

func newGeocodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <product.dim>",
		Short: "Convert an unwrapped product to terrain-corrected displacement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(runCtx context.Context, mgr *workflow.Manager) error {
				written, err := mgr.Geocode(runCtx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written.Path)
				return nil
			})
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Coregister, filter, and unwrap in one locked session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(runCtx context.Context, mgr *workflow.Manager) error {
				if err := mgr.RunAll(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Pipeline complete")
				return nil
			})
		},
	}
}

func printArtifacts(out io.Writer, written []artifact.Artifact) {
	if len(written) == 0 {
		return
	}
	rows := make([][]string, 0, len(written))
	for i, a := range written {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			stages.Label(a.Stage),
			filepath.Base(a.Source),
			a.Path,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Stage", "Source", "Checkpoint"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
}
