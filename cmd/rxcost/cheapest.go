package main

import (
	"fmt"
	"strings"

	"github.com/rxcost/rxcost/internal/cli"

	"github.com/spf13/cobra"
)

func cheapestCmd() *cobra.Command {
	var strength string

	cmd := &cobra.Command{
		Use:   "cheapest <drug name>",
		Short: "Find the cheapest therapeutic equivalents",
		Long: `Run the full workflow: resolve the drug name, find its A-rated therapeutic
equivalents, and rank them by Medicare Part D per-dose spending for the most
recent year. Equivalents without trade-name spending fall back to their
generic ingredient name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			svc, store, err := initEngine()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			comparison, err := svc.CheapestEquivalents(ctx, query, strength)
			if err != nil {
				return fmt.Errorf("failed to compare costs for %q: %w", query, err)
			}

			if comparison.Match.LowConfidence {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("No confident match for %q - try the full brand or ingredient name", query)))
				return nil
			}

			best := comparison.Match.Best
			fmt.Println(cli.FormatTitle(fmt.Sprintf("Cost comparison for %s (%d)", best.Product.TradeName, comparison.Year)))
			printProduct(best, comparison.Match.Classification)
			fmt.Println()

			for i, equiv := range comparison.Equivalents {
				header := fmt.Sprintf("%d. %s", i+1, equiv.Product.TradeName)
				if equiv.FallbackName != "" {
					header += cli.SubtleStyle.Render(fmt.Sprintf(" (priced as %q)", equiv.FallbackName))
				}
				fmt.Println(cli.BoldStyle.Render(header))

				if len(equiv.Records) == 0 {
					fmt.Println(cli.SubtleStyle.Render("   no spending data"))
					continue
				}

				cheapest := equiv.Records[0]
				fmt.Printf("   %s %s/dose · %s\n",
					cli.SuccessStyle.Render(cli.FormatSpend(cheapest.AvgSpendPerDose)),
					cli.SubtleStyle.Render("cheapest"),
					cheapest.Manufacturer)
				if len(equiv.Records) > 1 {
					fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("   %d more manufacturers", len(equiv.Records)-1)))
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&strength, "strength", "", "preferred strength, e.g. 20mg")

	return cmd
}
