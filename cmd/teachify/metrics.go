package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teachify/teachify/metrics/export/prometheus"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [path]...",
	Short: "Bootstrap, resolve the given paths and print the client metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, p := range args {
			a.client.Navigate(cmd.Context(), p)
		}
		fmt.Fprint(cmd.OutOrStdout(), prometheus.NewPrometheusExporter(a.client).Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
