package main

import (
	"fmt"

	"github.com/rxcost/rxcost/internal/cli"
	"github.com/rxcost/rxcost/internal/config"
	"github.com/rxcost/rxcost/internal/dataset"

	"github.com/spf13/cobra"
)

func buildCmd() *cobra.Command {
	var (
		productsFile string
		spendingFile string
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the reference databases from source files",
		Long: `Parse the FDA Orange Book products file and the CMS Part D spending CSV into
the two SQLite databases the lookup commands read. Existing databases are
replaced wholesale.

Source files:
  products.txt  https://www.fda.gov/drugs/drug-approvals-and-databases/orange-book-data-files
  spending.csv  https://data.cms.gov/summary-statistics-on-use-and-payments/medicare-medicaid-spending-by-drug`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			productsDB, costsDB := databasePaths()

			result, err := dataset.Build(cmd.Context(), dataset.BuildConfig{
				ProductsFile: config.ExpandPath(productsFile),
				SpendingFile: config.ExpandPath(spendingFile),
				ProductsDB:   productsDB,
				CostsDB:      costsDB,
				ShowProgress: !quiet,
			})
			if err != nil {
				return fmt.Errorf("dataset build failed: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Built %d products and %d cost rows", result.Products, result.CostRows)))
			return nil
		},
	}

	cmd.Flags().StringVar(&productsFile, "products", "products.txt", "Orange Book products file")
	cmd.Flags().StringVar(&spendingFile, "spending", "spending.csv", "CMS Part D spending CSV")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress progress bars")

	return cmd
}
