package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teachify/teachify/route"
)

var openCmd = &cobra.Command{
	Use:   "open <path>...",
	Short: "Resolve paths against the restored session",
	Long: `Resolve paths the way the web client navigates: each path is either
rendered, redirected or left pending. Paths are resolved in order, so
opening a dashboard page and then "/" shows the remembered page.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	for _, p := range args {
		v := a.client.Navigate(cmd.Context(), p)
		switch v.Kind {
		case route.Redirect:
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", route.Normalize(p), v.Path)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", route.Normalize(p), v.Kind)
		}
	}
	return nil
}
