package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"ductsync/internal/importer"
	"ductsync/internal/model"
	"ductsync/internal/service/excel"
)

func newBOMCommand(ctx *commandContext) *cobra.Command {
	var (
		opts       importer.ImportOptions
		exportPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "bom <file.xlsx>",
		Short: "Import a cut/nest export and map its BOM lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			opts.FilePath = args[0]
			report, err := a.coordinator.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printParseSummary(out, report.Parse)
				if report.BOM != nil {
					printBOM(out, report.BOM)
				}
			}

			if exportPath != "" {
				if report.BOM == nil {
					return fmt.Errorf("no bom lines to export")
				}
				f, err := excel.NewExporter().Export(report.Parse.Data, report.BOM.Lines)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := f.SaveAs(exportPath); err != nil {
					return fmt.Errorf("save %s: %w", exportPath, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d lines to %s\n", len(report.BOM.Lines), exportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.SessionID, "session", "", "Session id (re-running a session replays its decisions)")
	cmd.Flags().StringVar(&opts.LPOID, "lpo", "", "LPO scope id")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "Project scope id (defaults to the record's project)")
	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "Customer scope id")
	cmd.Flags().BoolVar(&opts.SkipBOM, "parse-only", false, "Parse and log without generating BOM lines")
	cmd.Flags().StringVarP(&exportPath, "export", "o", "", "Write the mapped BOM to this .xlsx path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the import report as JSON")
	return cmd
}

func printBOM(out io.Writer, res *model.ProcessResult) {
	fmt.Fprintf(out, "Session: %s  lines=%d mapped=%d review=%d\n",
		res.SessionID, res.TotalLines, res.MappedLines, res.ExceptionLines)
	if res.Message != "" {
		fmt.Fprintf(out, "%s\n", res.Message)
	}

	rows := make([][]string, 0, len(res.Lines))
	for _, l := range res.Lines {
		rows = append(rows, []string{
			strconv.Itoa(l.LineNumber),
			string(l.MaterialType),
			l.Description,
			formatQty(l.Quantity),
			l.Unit,
			string(l.Decision),
			l.CanonicalCode,
			formatQty(l.ConvertedQuantity),
			l.ConvertedUnit,
		})
	}
	headers := []string{"#", "Type", "Description", "Qty", "Unit", "Decision", "Code", "Converted", "To"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}
