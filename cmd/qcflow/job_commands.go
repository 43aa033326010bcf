package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qcflow/internal/jobs"
	"qcflow/internal/store"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Manage quality jobs",
	}

	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobEditCommand(ctx))
	jobCmd.AddCommand(newJobStageCommand(ctx))
	jobCmd.AddCommand(newJobCompleteCommand(ctx))
	jobCmd.AddCommand(newJobHoldCommand(ctx))
	jobCmd.AddCommand(newJobVerifyRevisionCommand(ctx))

	return jobCmd
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		poNumber     string
		customerRef  string
		partNumber   string
		partRevision string
		partDesc     string
		quantity     int
		dueDate      string
		drawing      string
		special      string
		actor        string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a job from a purchase order line",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.jobService()
			if err != nil {
				return err
			}
			due, err := parseDateFlag(dueDate)
			if err != nil {
				return err
			}
			job, err := svc.Create(cmd.Context(), jobs.CreateInput{
				PONumber:            poNumber,
				CustomerRef:         customerRef,
				PartNumber:          partNumber,
				PartRevision:        partRevision,
				PartDescription:     partDesc,
				Quantity:            quantity,
				DueDate:             due,
				DrawingNumber:       drawing,
				SpecialRequirements: special,
				Actor:               actor,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (part %s, qty %d)\n", job.JobNumber, job.PartNumber, job.Quantity)
			return nil
		},
	}

	cmd.Flags().StringVar(&poNumber, "po", "", "Customer purchase order number")
	cmd.Flags().StringVar(&customerRef, "customer", "", "Customer reference")
	cmd.Flags().StringVar(&partNumber, "part", "", "Part number")
	cmd.Flags().StringVar(&partRevision, "revision", "", "Part revision")
	cmd.Flags().StringVar(&partDesc, "description", "", "Part description")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "Order quantity")
	cmd.Flags().StringVar(&dueDate, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&drawing, "drawing", "", "Drawing number")
	cmd.Flags().StringVar(&special, "special", "", "Special requirements")
	cmd.Flags().StringVar(&actor, "by", "", "Acting user name")
	_ = cmd.MarkFlagRequired("po")
	_ = cmd.MarkFlagRequired("part")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var stageFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.jobService()
			if err != nil {
				return err
			}
			var stages []store.Stage
			for _, raw := range strings.Split(stageFilter, ",") {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				stage, ok := store.ParseStage(raw)
				if !ok {
					return fmt.Errorf("unknown stage %q", raw)
				}
				stages = append(stages, stage)
			}
			list, err := svc.List(cmd.Context(), stages...)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					fmt.Sprintf("%d", job.ID),
					job.JobNumber,
					job.PONumber,
					job.PartNumber,
					dash(job.PartRevision),
					fmt.Sprintf("%d", job.Quantity),
					stageDisplay(job.Stage),
					formatDate(job.DueDate),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Job", "PO", "Part", "Rev", "Qty", "Stage", "Due"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&stageFilter, "stage", "", "Comma-separated stage filter")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job>",
		Short: "Show one job in detail",
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
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  (%s)\n", job.JobNumber, stageDisplay(job.Stage))
			fmt.Fprintf(out, "  PO:        %s\n", job.PONumber)
			fmt.Fprintf(out, "  Customer:  %s\n", dash(job.CustomerRef))
			fmt.Fprintf(out, "  Part:      %s rev %s  %s\n", job.PartNumber, dash(job.PartRevision), dash(job.PartDescription))
			fmt.Fprintf(out, "  Quantity:  %d\n", job.Quantity)
			fmt.Fprintf(out, "  Due:       %s\n", formatDate(job.DueDate))
			fmt.Fprintf(out, "  Drawing:   %s (verified: %s)\n", dash(job.DrawingNumber), yesNo(job.RevisionVerified))
			if job.SpecialRequirements != "" {
				fmt.Fprintf(out, "  Special:   %s\n", job.SpecialRequirements)
			}
			fmt.Fprintf(out, "  Created:   %s\n", formatTimestamp(job.CreatedAt))
			if job.CompletedAt != nil {
				fmt.Fprintf(out, "  Completed: %s\n", formatTimestamp(*job.CompletedAt))
			}
			return nil
		},
	}
}

func newJobEditCommand(ctx *commandContext) *cobra.Command {
	var (
		poNumber     string
		customerRef  string
		partNumber   string
		partRevision string
		partDesc     string
		quantity     int
		dueDate      string
		drawing      string
		special      string
		actor        string
	)

	cmd := &cobra.Command{
		Use:   "edit <job>",
		Short: "Edit a job's details",
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
			svc, err := ctx.jobService()
			if err != nil {
				return err
			}

			input := jobs.EditInput{
				PONumber:            job.PONumber,
				CustomerRef:         job.CustomerRef,
				PartNumber:          job.PartNumber,
				PartRevision:        job.PartRevision,
				PartDescription:     job.PartDescription,
				Quantity:            job.Quantity,
				DueDate:             job.DueDate,
				DrawingNumber:       job.DrawingNumber,
				SpecialRequirements: job.SpecialRequirements,
				Actor:               actor,
			}
			if cmd.Flags().Changed("po") {
				input.PONumber = poNumber
			}
			if cmd.Flags().Changed("customer") {
				input.CustomerRef = customerRef
			}
			if cmd.Flags().Changed("part") {
				input.PartNumber = partNumber
			}
			if cmd.Flags().Changed("revision") {
				input.PartRevision = partRevision
			}
			if cmd.Flags().Changed("description") {
				input.PartDescription = partDesc
			}
			if cmd.Flags().Changed("quantity") {
				input.Quantity = quantity
			}
			if cmd.Flags().Changed("due") {
				due, err := parseDateFlag(dueDate)
				if err != nil {
					return err
				}
				input.DueDate = due
			}
			if cmd.Flags().Changed("drawing") {
				input.DrawingNumber = drawing
			}
			if cmd.Flags().Changed("special") {
				input.SpecialRequirements = special
			}

			updated, err := svc.Edit(cmd.Context(), job.ID, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.JobNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&poNumber, "po", "", "Customer purchase order number")
	cmd.Flags().StringVar(&customerRef, "customer", "", "Customer reference")
	cmd.Flags().StringVar(&partNumber, "part", "", "Part number")
	cmd.Flags().StringVar(&partRevision, "revision", "", "Part revision")
	cmd.Flags().StringVar(&partDesc, "description", "", "Part description")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "Order quantity")
	cmd.Flags().StringVar(&dueDate, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&drawing, "drawing", "", "Drawing number")
	cmd.Flags().StringVar(&special, "special", "", "Special requirements")
	cmd.Flags().StringVar(&actor, "by", "", "Acting user name")
	return cmd
}

func newJobStageCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "stage <job> <stage>",
		Short: "Move a job to a workflow stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			job, err := resolveJob(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			machine, err := ctx.machine()
			if err != nil {
				return err
			}
			updated, err := machine.SetStage(cmd.Context(), job.ID, args[1], actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now in %s\n", updated.JobNumber, stageDisplay(updated.Stage))
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "Acting user name")
	return cmd
}

func newJobCompleteCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "complete <job>",
		Short: "Mark a job complete",
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
			machine, err := ctx.machine()
			if err != nil {
				return err
			}
			updated, err := machine.Complete(cmd.Context(), job.ID, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s completed at %s\n", updated.JobNumber, formatTimestamp(*updated.CompletedAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "Acting user name")
	return cmd
}

func newJobHoldCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "hold <job>",
		Short: "Put a job on hold",
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
			machine, err := ctx.machine()
			if err != nil {
				return err
			}
			updated, err := machine.Hold(cmd.Context(), job.ID, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is on hold\n", updated.JobNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "Acting user name")
	return cmd
}

func newJobVerifyRevisionCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "verify-revision <job>",
		Short: "Record that the drawing revision was checked",
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
			machine, err := ctx.machine()
			if err != nil {
				return err
			}
			updated, err := machine.VerifyRevision(cmd.Context(), job.ID, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revision verified on %s\n", updated.JobNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "Acting user name")
	return cmd
}
