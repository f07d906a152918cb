package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and invalidate the snapshot cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snapshot cache state",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := callAPI(http.MethodGet, "/api/admin/cache/stats")
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the cached snapshot so the next read refetches from the origin",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := callAPI(http.MethodPost, "/api/admin/cache/invalidate")
		if err != nil {
			return err
		}
		return printJSON(body)
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
