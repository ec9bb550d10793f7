package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func yearsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "years",
		Short: "Inspect the spending dataset's year coverage",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Print the most recent year with spending data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, store, err := initEngine()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			year, err := svc.LatestYear(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to determine latest year: %w", err)
			}

			fmt.Println(year)
			return nil
		},
	})

	return cmd
}
