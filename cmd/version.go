package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	buildTime  string
)

// SetVersion records build metadata and enables the --version flag.
func SetVersion(v, bt string) {
	if v != "" {
		appVersion = v
	}
	buildTime = bt
	rootCmd.Version = appVersion
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "copilot %s (%s/%s, %s)\n", appVersion, runtime.GOOS, runtime.GOARCH, runtime.Version())
		if buildTime != "" {
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
