package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ductsync/internal/service/mapping"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var req mapping.LookupRequest

	cmd := &cobra.Command{
		Use:   "lookup <description>",
		Short: "Resolve a material description to its canonical code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			req.Description = strings.Join(args, " ")
			res := a.mapping.Lookup(cmd.Context(), req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success && res.HistoryID == "" {
				return fmt.Errorf("lookup failed: %s", res.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.LPOID, "lpo", "", "LPO scope id")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Project scope id")
	cmd.Flags().StringVar(&req.CustomerID, "customer", "", "Customer scope id")
	cmd.Flags().StringVar(&req.IngestLineID, "ingest-id", "", "Idempotency key")
	return cmd
}
