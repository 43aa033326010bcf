package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcflow/internal/store"
)

func newMaterialCommand(ctx *commandContext) *cobra.Command {
	materialCmd := &cobra.Command{
		Use:   "material",
		Short: "Track incoming material inspections",
	}

	materialCmd.AddCommand(newMaterialAddCommand(ctx))
	materialCmd.AddCommand(newMaterialStatusCommand(ctx))
	materialCmd.AddCommand(newMaterialListCommand(ctx))

	return materialCmd
}

func newMaterialAddCommand(ctx *commandContext) *cobra.Command {
	var (
		supplierID   int64
		materialType string
		batchNumber  string
		quantity     string
		certMatches  bool
		visualOK     bool
		notes        string
		inspector    string
	)

	cmd := &cobra.Command{
		Use:   "add <job>",
		Short: "Record a material receipt for inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			job, err := resolveJob(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			mc := &store.MaterialControl{
				JobID:              job.ID,
				Inspector:          inspector,
				MaterialType:       materialType,
				BatchNumber:        batchNumber,
				QuantityReceived:   quantity,
				CertificateMatches: certMatches,
				VisualOK:           visualOK,
				Notes:              notes,
			}
			if supplierID > 0 {
				mc.SupplierID = &supplierID
			}
			created, err := st.CreateMaterialControl(cmd.Context(), mc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Material control %d opened on %s\n", created.ID, job.JobNumber)
			return nil
		},
	}

	cmd.Flags().Int64Var(&supplierID, "supplier", 0, "Supplier id")
	cmd.Flags().StringVar(&materialType, "type", "", "Material type")
	cmd.Flags().StringVar(&batchNumber, "batch", "", "Batch or heat number")
	cmd.Flags().StringVar(&quantity, "quantity", "", "Quantity received")
	cmd.Flags().BoolVar(&certMatches, "cert-ok", false, "Certificate matches the order")
	cmd.Flags().BoolVar(&visualOK, "visual-ok", false, "Visual check passed")
	cmd.Flags().StringVar(&notes, "notes", "", "Inspection notes")
	cmd.Flags().StringVar(&inspector, "by", "", "Inspector name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newMaterialStatusCommand(ctx *commandContext) *cobra.Command {
	var inspector string

	cmd := &cobra.Command{
		Use:   "status <material-id> <pending|approved|rejected>",
		Short: "Set the inspection outcome for received material",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			mc, err := engine.SetMaterialStatus(cmd.Context(), id, args[1], inspector)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Material control %d is %s\n", mc.ID, mc.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&inspector, "by", "", "Inspector name")
	return cmd
}

func newMaterialListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <job>",
		Short: "List a job's material controls",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			job, err := resolveJob(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			mcs, err := st.ListMaterialControls(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			if len(mcs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No material controls on %s\n", job.JobNumber)
				return nil
			}
			rows := make([][]string, 0, len(mcs))
			for _, mc := range mcs {
				rows = append(rows, []string{
					fmt.Sprintf("%d", mc.ID),
					mc.MaterialType,
					dash(mc.BatchNumber),
					dash(mc.QuantityReceived),
					yesNo(mc.CertificateMatches),
					string(mc.Status),
					dash(mc.Inspector),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Batch", "Qty", "Cert", "Status", "Inspector"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
