// Command teachify drives a Teachify client session from the terminal. Every
// run behaves like one page load of the web client: it opens the persisted
// credential store, bootstraps the session and then performs one command.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "teachify",
	Short: "Teachify session client",
	Long: `Teachify session client. Usage:

	teachify login ada
	teachify open /dashboard
	teachify serve --demo
`,
	SilenceUsage: true,
}

var flags struct {
	envFile   string
	apiURL    string
	store     string
	storeFile string
	redisAddr string
	device    string
	verbose   bool
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading TEACHIFY_* variables")
	pf.StringVar(&flags.apiURL, "api-url", "", "Teachify API base URL (overrides TEACHIFY_API_URL)")
	pf.StringVar(&flags.store, "store", "", "credential store: file, redis, redis-embedded or memory (default file)")
	pf.StringVar(&flags.storeFile, "store-file", "", "credentials file for the file store")
	pf.StringVar(&flags.redisAddr, "redis-addr", "", "Redis address for the redis store")
	pf.StringVar(&flags.device, "device", "", "device name keying the redis store")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
