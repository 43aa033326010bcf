package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPartCommand(ctx *commandContext) *cobra.Command {
	partCmd := &cobra.Command{
		Use:   "part",
		Short: "Browse the part catalog",
	}

	partCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known part identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.partRegistry()
			if err != nil {
				return err
			}
			catalog, err := registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(catalog) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No parts registered")
				return nil
			}
			rows := make([][]string, 0, len(catalog))
			for _, part := range catalog {
				rows = append(rows, []string{
					fmt.Sprintf("%d", part.ID),
					part.Number,
					dash(part.Revision),
					dash(part.Description),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Part", "Rev", "Description"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	})

	return partCmd
}
