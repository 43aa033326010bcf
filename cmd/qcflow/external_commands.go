package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcflow/internal/store"
)

func newExternalCommand(ctx *commandContext) *cobra.Command {
	externalCmd := &cobra.Command{
		Use:   "external",
		Short: "Track outsourced process steps",
	}

	externalCmd.AddCommand(newExternalSendCommand(ctx))
	externalCmd.AddCommand(newExternalReceiveCommand(ctx))
	externalCmd.AddCommand(newExternalInspectCommand(ctx))
	externalCmd.AddCommand(newExternalListCommand(ctx))

	return externalCmd
}

func newExternalSendCommand(ctx *commandContext) *cobra.Command {
	var (
		supplierID  int64
		processType string
		quantity    int
		sentDate    string
		expected    string
		notes       string
	)

	cmd := &cobra.Command{
		Use:   "send <job>",
		Short: "Record parts sent to an external process",
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
			sent, err := parseDateFlag(sentDate)
			if err != nil {
				return err
			}
			expectedReturn, err := parseDateFlag(expected)
			if err != nil {
				return err
			}
			ep := &store.ExternalProcess{
				JobID:              job.ID,
				ProcessType:        processType,
				QuantitySent:       quantity,
				SentDate:           sent,
				ExpectedReturnDate: expectedReturn,
				Notes:              notes,
			}
			if supplierID > 0 {
				ep.SupplierID = &supplierID
			}
			created, err := st.CreateExternalProcess(cmd.Context(), ep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "External process %d (%s) opened on %s\n", created.ID, created.ProcessType, job.JobNumber)
			return nil
		},
	}

	cmd.Flags().Int64Var(&supplierID, "supplier", 0, "Supplier id")
	cmd.Flags().StringVar(&processType, "type", "", "Process type (plating, anodizing, ...)")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "Quantity sent")
	cmd.Flags().StringVar(&sentDate, "sent", "", "Sent date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&expected, "expected", "", "Expected return date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func newExternalReceiveCommand(ctx *commandContext) *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "receive <external-id>",
		Short: "Record parts returned from the supplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if err := st.MarkExternalReceived(cmd.Context(), id, quantity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "External process %d received (%d parts)\n", id, quantity)
			return nil
		},
	}

	cmd.Flags().IntVar(&quantity, "quantity", 0, "Quantity received")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func newExternalInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		inspector string
		notes     string
	)

	cmd := &cobra.Command{
		Use:   "inspect <external-id> <approved|rejected>",
		Short: "Record the inspection outcome for returned parts",
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
			ep, err := engine.InspectExternal(cmd.Context(), id, args[1], inspector, notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "External process %d is %s\n", ep.ID, ep.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&inspector, "by", "", "Inspector name")
	cmd.Flags().StringVar(&notes, "notes", "", "Inspection notes")
	return cmd
}

func newExternalListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <job>",
		Short: "List a job's external processes",
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
			eps, err := st.ListExternalProcesses(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			if len(eps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No external processes on %s\n", job.JobNumber)
				return nil
			}
			rows := make([][]string, 0, len(eps))
			for _, ep := range eps {
				rows = append(rows, []string{
					fmt.Sprintf("%d", ep.ID),
					ep.ProcessType,
					fmt.Sprintf("%d", ep.QuantitySent),
					fmt.Sprintf("%d", ep.QuantityReceived),
					formatDate(ep.ExpectedReturnDate),
					formatDate(ep.ActualReturnDate),
					string(ep.Status),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Process", "Sent", "Received", "Expected", "Returned", "Status"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
