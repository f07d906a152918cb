// gtixtctl is the operator CLI for the GTIXT console API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	adminToken string
)

var rootCmd = &cobra.Command{
	Use:   "gtixtctl",
	Short: "Operate the GTIXT console: jobs, runs and snapshot cache",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if serverURL == "" {
			serverURL = os.Getenv("GTIXT_SERVER")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if adminToken == "" {
			adminToken = os.Getenv("GTIXT_ADMIN_TOKEN")
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "console base URL (default $GTIXT_SERVER or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&adminToken, "token", "", "admin token (default $GTIXT_ADMIN_TOKEN)")
}
