package main

import (
	"fmt"
	"strings"

	"github.com/rxcost/rxcost/internal/cli"

	"github.com/spf13/cobra"
)

func genericsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generics <ingredient>",
		Short: "Show generic name candidates for an ingredient",
		Long: `Derive bare-ingredient fallback names from a salt-form ingredient, in the
order cost lookups try them. "metformin hydrochloride" yields "metformin"
before the full name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ingredient := strings.Join(args, " ")

			svc, store, err := initEngine()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			candidates := svc.GenericCandidates(ingredient)
			if len(candidates) == 0 {
				fmt.Println(cli.FormatWarning("Nothing to derive from an empty name"))
				return nil
			}

			for i, candidate := range candidates {
				fmt.Printf("%d. %s\n", i+1, candidate)
			}
			return nil
		},
	}
}
