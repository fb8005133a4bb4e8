package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aretw0/cracklens/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or reset what cracklens remembers",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize the memory: known subjects and recent metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		rendered, err := tui.NewRenderer()(tui.SnapshotReport(a.engine.Snapshot()))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

var memoryMetricsCmd = &cobra.Command{
	Use:   "metrics <subject>",
	Short: "Print the newest metrics of a subject as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		var scale *float64
		if cmd.Flags().Changed("scale") {
			v, _ := cmd.Flags().GetFloat64("scale")
			scale = &v
		}
		metrics := a.engine.Metrics(args[0], scale)
		if metrics == nil {
			return fmt.Errorf("no metrics remembered for %s", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(metrics)
	},
}

var memorySnapshotCmd = &cobra.Command{
	Use:   "snapshot [path]",
	Short: "Write the memory summary as JSON (default summary.json)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		path := "summary.json"
		if len(args) > 0 {
			path = args[0]
		}
		if err := a.engine.Memory().ExportSnapshot(path); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s\n", abs)
		return nil
	},
}

var memoryResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget everything: clears memory and truncates the record log",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return errors.New("refusing to reset memory without --force")
		}
		a, err := loadApp(cmd.Context(), cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.engine.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Memory cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryShowCmd, memoryMetricsCmd, memorySnapshotCmd, memoryResetCmd)

	memoryMetricsCmd.Flags().Float64("scale", 0, "Only metrics computed at this pixel size (mm)")
	memoryResetCmd.Flags().Bool("force", false, "Confirm the reset")
}
