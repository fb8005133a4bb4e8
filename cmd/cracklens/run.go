package main

import (
	"errors"
	"os"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/cli"
	"github.com/aretw0/cracklens/internal/presentation/tui"
	"github.com/aretw0/cracklens/pkg/plan"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [plan-file]",
	Short: "Run a plan file or a saved plan",
	Long: `Runs a JSON or YAML plan of tool steps and prints a report.
Steps already answered by memory are reported as cached and not recomputed.

Examples:
  cracklens run plans/inspect.yaml
  cracklens run --plan inspect
  cracklens run plans/inspect.yaml --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID, _ := cmd.Flags().GetString("plan")
		watch, _ := cmd.Flags().GetBool("watch")
		quiet, _ := cmd.Flags().GetBool("quiet")

		if (planID == "") == (len(args) == 0) {
			return errors.New("pass either a plan file or --plan <id>")
		}
		if watch && planID != "" {
			return errors.New("--watch needs a plan file")
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		a, err := loadApp(sigCtx, cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if !quiet {
			tui.PrintBanner(os.Stdout, cracklens.Version)
		}
		render := tui.NewRenderer()
		out := cmd.OutOrStdout()

		if planID != "" {
			return cli.RunPlanID(sigCtx, a.engine, planID, out, render)
		}
		if !watch {
			p, err := cli.LoadPlanFile(args[0])
			if err != nil {
				return err
			}
			return cli.RunPlan(sigCtx, a.engine, p.Steps, out, render)
		}

		cli.PrintSystemMessage(out, "Watching '%s'. Press Ctrl+C to stop.", args[0])
		return cli.WatchFile(sigCtx, args[0], cli.DefaultWatchInterval, a.logger, func(data []byte) {
			p, err := plan.ParsePlan(data)
			if err != nil {
				cli.PrintSystemMessage(out, "Invalid plan: %v", err)
				return
			}
			if err := cli.RunPlan(sigCtx, a.engine, p.Steps, out, render); err != nil {
				cli.PrintSystemMessage(out, "%v", err)
			}
			cli.PrintSystemMessage(out, "Waiting for changes...")
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("plan", "", "ID of a saved plan in the plans directory")
	runCmd.Flags().BoolP("watch", "w", false, "Run again whenever the plan file changes")
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}

