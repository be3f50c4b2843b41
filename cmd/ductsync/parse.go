package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"ductsync/internal/model"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse <file.xlsx>",
		Short: "Extract an execution record from a cut/nest export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			result := a.parser.Parse(cmd.Context(), data, filepath.Base(args[0]))

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printParseSummary(out, result)
			if result.Status == model.ParseError {
				return fmt.Errorf("parse failed: %s", firstOr(result.Errors, string(result.Status)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func printParseSummary(out io.Writer, result model.ParseResult) {
	fmt.Fprintf(out, "Status: %s (%d ms)\n", result.Status, result.ProcessingTimeMS)
	if rec := result.Data; rec != nil {
		fmt.Fprintf(out, "Project: %s\n", rec.Metadata.ProjectID)
		rows := [][]string{
			{"Profiles", strconv.Itoa(len(rec.Profiles))},
			{"Accessories", strconv.Itoa(len(rec.Accessories))},
			{"Consumables", strconv.Itoa(len(rec.Consumables))},
			{"Finished goods", strconv.Itoa(len(rec.FinishedGoods))},
			{"Wear metrics", strconv.Itoa(len(rec.Telemetry.Wear))},
		}
		fmt.Fprintln(out, renderTable([]string{"Section", "Rows"}, rows, []columnAlignment{alignLeft, alignRight}))
		for _, m := range rec.Metadata.Messages {
			fmt.Fprintf(out, "  - %s\n", m)
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
}

func firstOr(s []string, def string) string {
	if len(s) > 0 {
		return s[0]
	}
	return def
}
