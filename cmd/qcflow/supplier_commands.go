package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcflow/internal/store"
)

func newSupplierCommand(ctx *commandContext) *cobra.Command {
	supplierCmd := &cobra.Command{
		Use:   "supplier",
		Short: "Manage the supplier directory",
	}

	supplierCmd.AddCommand(newSupplierAddCommand(ctx))
	supplierCmd.AddCommand(newSupplierListCommand(ctx))

	return supplierCmd
}

func newSupplierAddCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a supplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			supplier, err := st.CreateSupplier(cmd.Context(), &store.Supplier{Name: args[0], Kind: kind})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Supplier %d (%s) added\n", supplier.ID, supplier.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "material", "Supplier kind (material or process)")
	return cmd
}

func newSupplierListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List suppliers",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			suppliers, err := st.ListSuppliers(cmd.Context())
			if err != nil {
				return err
			}
			if len(suppliers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No suppliers")
				return nil
			}
			rows := make([][]string, 0, len(suppliers))
			for _, supplier := range suppliers {
				rows = append(rows, []string{
					fmt.Sprintf("%d", supplier.ID),
					supplier.Name,
					supplier.Kind,
					yesNo(supplier.Active),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Kind", "Active"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
