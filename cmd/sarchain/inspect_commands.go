package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sarchain/internal/ledger"
	"sarchain/internal/preflight"
)

const timeLayout = "2006-01-02 15:04:05"

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show scene roles and every checkpoint a coregistration run would write",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := ctx.newManager()
			if err != nil {
				return err
			}
			defer ctx.closeLogger()
			plan, err := mgr.Plan()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, sp := range plan.Scenes() {
				for _, step := range sp.Steps {
					rows = append(rows, []string{
						sp.Product.Role().String(),
						sp.Product.Name(),
						sp.Product.AcquiredAt.UTC().Format(timeLayout),
						step.Stage.Label(),
						filepath.Base(step.Checkpoint),
					})
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Role", "Scene", "Acquired", "Stage", "Checkpoint"},
				rows,
				nil,
			))
			fmt.Fprintf(out, "%d scenes, %d checkpoints\n", len(plan.Scenes()), len(plan.Checkpoints()))
			return nil
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, DEM, graph file, and inputs before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				switch {
				case !r.Passed && r.Advisory:
					status = "warn"
				case !r.Passed:
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if blocking := preflight.Blocking(results); len(blocking) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(blocking))
			}
			return nil
		},
	}
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.Command,
						string(run.Status),
						run.StartedAt.Local().Format(timeLayout),
						runDuration(run),
						run.ErrorKind,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Command", "Status", "Started", "Duration", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var latest bool
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List recorded checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				id, err := resolveRunID(cmd.Context(), store, runID, latest)
				if err != nil {
					return err
				}
				entries, err := store.ListArtifacts(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No artifacts recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for i, e := range entries {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						e.Stage,
						filepath.Base(e.Source),
						e.Path,
						e.WrittenAt.Local().Format(timeLayout),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Stage", "Source", "Checkpoint", "Written"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Only show artifacts written by this run")
	cmd.Flags().BoolVar(&latest, "latest", false, "Only show artifacts written by the most recent run")
	return cmd
}

func resolveRunID(ctx context.Context, store *ledger.Store, runID string, latest bool) (string, error) {
	if runID != "" || !latest {
		return runID, nil
	}
	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded")
	}
	return runs[0].ID, nil
}

func runDuration(run ledger.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}
