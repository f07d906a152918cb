package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var runsJob string
var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect job run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		query.Set("limit", fmt.Sprintf("%d", runsLimit))
		if runsJob != "" {
			query.Set("job", runsJob)
		}

		body, err := callAPI(http.MethodGet, "/api/admin/runs?"+query.Encode())
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show one run, including captured output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := callAPI(http.MethodGet, "/api/admin/runs/"+args[0])
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsJob, "job", "", "filter by job name")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to return")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsGetCmd)
	rootCmd.AddCommand(runsCmd)
}
