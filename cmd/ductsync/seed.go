package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ductsync/internal/service/excel"
	"ductsync/internal/store"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <tables.xlsx>",
		Short: "Load reference/override tables from a workbook into the row store",
		Long: "Each tab named after a table (logical name or the manifest's physical name) " +
			"is appended to that table. The first row is the header.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			tables, err := excel.ReadTables(f)
			if err != nil {
				return err
			}

			loaded := 0
			rows := [][]string{}
			for _, logical := range store.LogicalTables {
				physical := a.cfg.Manifest.Table(logical)
				data, name := findTable(tables, logical, physical)
				if name == "" {
					continue
				}
				batch := make([]store.Row, 0, len(data))
				for _, r := range data {
					batch = append(batch, store.Row(r))
				}
				// 工作簿内容已是物理列，直接写底层存储
				if err := a.store.AddRows(cmd.Context(), physical, batch); err != nil {
					return fmt.Errorf("seed %s: %w", logical, err)
				}
				a.logger.Info("table seeded", zap.String("table", logical), zap.String("tab", name), zap.Int("rows", len(batch)))
				rows = append(rows, []string{logical, name, fmt.Sprint(len(batch))})
				loaded++
			}
			if loaded == 0 {
				return fmt.Errorf("no known tables in %s", args[0])
			}
			a.mapping.Invalidate()
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Table", "Tab", "Rows"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}

func findTable(tables map[string][]map[string]string, names ...string) ([]map[string]string, string) {
	for _, n := range names {
		for tab, data := range tables {
			if strings.EqualFold(strings.TrimSpace(tab), n) {
				return data, tab
			}
		}
	}
	return nil, ""
}
