package main

import (
	"fmt"
	"strings"

	"github.com/rxcost/rxcost/internal/cli"

	"github.com/spf13/cobra"
)

func equivalentsCmd() *cobra.Command {
	var (
		strength string
		form     string
		route    string
	)

	cmd := &cobra.Command{
		Use:   "equivalents <ingredient>",
		Short: "List A-rated therapeutic equivalents",
		Long: `List products rated therapeutically equivalent (TE code starting with "A")
for an ingredient at a given strength, dosage form, and route.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ingredient := strings.Join(args, " ")

			svc, store, err := initEngine()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			products, err := svc.FindEquivalents(ctx, ingredient, strength, form, route)
			if err != nil {
				return fmt.Errorf("failed to find equivalents for %q: %w", ingredient, err)
			}

			if len(products) == 0 {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("No A-rated equivalents found for %q", ingredient)))
				return nil
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Therapeutic equivalents for %s", strings.ToUpper(ingredient))))
			rows := make([][]string, 0, len(products))
			for _, p := range products {
				rows = append(rows, []string{
					p.TradeName,
					p.Strength,
					p.DosageForm,
					p.Applicant,
					p.TECode,
					string(p.Classification()),
				})
			}
			fmt.Println(cli.RenderTable([]string{"Trade Name", "Strength", "Form", "Applicant", "TE", "Class"}, rows))

			return nil
		},
	}

	cmd.Flags().StringVar(&strength, "strength", "", "strength filter, e.g. 20mg")
	cmd.Flags().StringVar(&form, "form", "", "dosage form filter, e.g. tablet")
	cmd.Flags().StringVar(&route, "route", "", "route filter, e.g. oral")

	return cmd
}
