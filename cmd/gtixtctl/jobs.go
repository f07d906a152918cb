package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and trigger registered pipeline jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := callAPI(http.MethodGet, "/api/admin/jobs")
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Trigger a job run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := callAPI(http.MethodPost, fmt.Sprintf("/api/admin/jobs/%s/run", args[0]))
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsRunCmd)
	rootCmd.AddCommand(jobsCmd)
}
