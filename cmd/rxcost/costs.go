package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rxcost/rxcost/internal/cli"
	"github.com/rxcost/rxcost/internal/model"

	"github.com/spf13/cobra"
)

func costsCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "costs <drug name>",
		Short: "Look up Medicare Part D spending for a drug",
		Long: `Show per-dose Medicare Part D spending records matching a brand or generic
name, cheapest first. Defaults to the most recent year in the dataset.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := strings.Join(args, " ")

			svc, store, err := initEngine()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := svc.LookupCosts(ctx, name, year)
			if err != nil {
				return fmt.Errorf("failed to look up costs for %q: %w", name, err)
			}

			if len(records) == 0 {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("No spending records for %q", name)))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Part D spending for %s (%d)", strings.ToUpper(name), records[0].Year)))
			fmt.Println(cli.RenderTable(
				[]string{"Brand", "Generic", "Manufacturer", "$/dose", "Mftrs", ""},
				costRows(records),
			))

			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "spending year (default: latest available)")

	return cmd
}

func costRows(records model.RankedCostList) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		note := ""
		if r.OutlierFlag {
			note = cli.WarningStyle.Render("outlier")
		}
		rows = append(rows, []string{
			r.BrandName,
			r.GenericName,
			r.Manufacturer,
			cli.FormatSpend(r.AvgSpendPerDose),
			strconv.Itoa(r.TotManufacturer),
			note,
		})
	}
	return rows
}
