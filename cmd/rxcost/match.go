package main

import (
	"fmt"
	"strings"

	"github.com/rxcost/rxcost/internal/cli"
	"github.com/rxcost/rxcost/internal/model"

	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	var strength string

	cmd := &cobra.Command{
		Use:   "match <drug name>",
		Short: "Resolve a drug name to its product identity",
		Long: `Resolve a free-text drug name (brand or ingredient) against the product
reference database and show the best match plus ranked alternates.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			svc, store, err := initEngine()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := svc.MatchIdentity(ctx, query, strength)
			if err != nil {
				return fmt.Errorf("failed to match %q: %w", query, err)
			}

			if result.LowConfidence {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("No confident match for %q", query)))
				if len(result.Alternates) == 0 {
					return nil
				}
				fmt.Println(cli.SubtleStyle.Render("Closest candidates:"))
			} else {
				fmt.Println(cli.FormatTitle("Best match"))
				printProduct(result.Best, result.Classification)
				if len(result.Alternates) == 0 {
					return nil
				}
				fmt.Println()
				fmt.Println(cli.SubtleStyle.Render("Alternates:"))
			}

			rows := make([][]string, 0, len(result.Alternates))
			for _, alt := range result.Alternates {
				rows = append(rows, []string{
					alt.Product.TradeName,
					alt.Product.Ingredient,
					alt.Product.Strength,
					string(alt.Product.Classification()),
					cli.FormatScore(alt.Score),
				})
			}
			fmt.Println(cli.RenderTable([]string{"Trade Name", "Ingredient", "Strength", "Class", "Score"}, rows))

			return nil
		},
	}

	cmd.Flags().StringVar(&strength, "strength", "", "preferred strength, e.g. 20mg")

	return cmd
}

func printProduct(sp model.ScoredProduct, class model.Classification) {
	p := sp.Product
	fmt.Printf("  %s  %s\n", cli.BoldStyle.Render(p.TradeName), cli.FormatClassification(class))
	fmt.Printf("  %s\n", cli.SubtleStyle.Render(fmt.Sprintf("%s · %s · %s · %s", p.Ingredient, p.Strength, p.DosageForm, p.Route)))
	fmt.Printf("  %s\n", cli.SubtleStyle.Render(fmt.Sprintf("Applicant: %s · TE code: %s · Score: %.0f (%s)", p.Applicant, p.TECode, sp.Score, sp.Stage)))
}
