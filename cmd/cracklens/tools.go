package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools plan steps can use",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tDESCRIPTION")
		for _, t := range a.engine.Tools() {
			fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
		}
		return w.Flush()
	},
}

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the saved plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.engine.Plans(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No saved plans in %s\n", a.cfg.PlansDir)
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd, plansCmd)
}
