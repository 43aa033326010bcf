package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcflow/internal/jobs"
)

func newDimensionCommand(ctx *commandContext) *cobra.Command {
	dimCmd := &cobra.Command{
		Use:   "dim",
		Short: "Manage a job's dimension plan",
	}

	dimCmd.AddCommand(newDimensionAddCommand(ctx))
	dimCmd.AddCommand(newDimensionListCommand(ctx))
	dimCmd.AddCommand(newDimensionDeleteCommand(ctx))
	dimCmd.AddCommand(newDimensionCopyCommand(ctx))

	return dimCmd
}

func newDimensionAddCommand(ctx *commandContext) *cobra.Command {
	var (
		name       string
		nominal    float64
		tolPlus    toleranceFlag
		tolMinus   toleranceFlag
		unit       string
		drawingRef string
		critical   bool
	)

	cmd := &cobra.Command{
		Use:   "add <job>",
		Short: "Add a dimension to a job",
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
			dim, err := svc.AddDimension(cmd.Context(), job.ID, jobs.DimensionInput{
				Name:             name,
				Nominal:          nominal,
				TolerancePlus:    tolPlus.ptr(),
				ToleranceMinus:   tolMinus.ptr(),
				Unit:             unit,
				DrawingReference: drawingRef,
				Critical:         critical,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added dimension %d (%s) to %s\n", dim.Number, dim.Name, job.JobNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Dimension name")
	cmd.Flags().Float64Var(&nominal, "nominal", 0, "Nominal value")
	cmd.Flags().Var(&tolPlus, "plus", "Upper tolerance offset")
	cmd.Flags().Var(&tolMinus, "minus", "Lower tolerance offset (negative)")
	cmd.Flags().StringVar(&unit, "unit", "mm", "Unit of measure (go/nogo for attribute gauges)")
	cmd.Flags().StringVar(&drawingRef, "ref", "", "Drawing reference")
	cmd.Flags().BoolVar(&critical, "critical", false, "Mark as a critical dimension")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDimensionListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <job>",
		Short: "List a job's dimensions",
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
			dims, err := svc.Dimensions(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			if len(dims) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No dimensions on %s\n", job.JobNumber)
				return nil
			}
			rows := make([][]string, 0, len(dims))
			for _, dim := range dims {
				tol := "-"
				if dim.TolerancePlus != nil && dim.ToleranceMinus != nil {
					tol = fmt.Sprintf("%+g / %+g", *dim.TolerancePlus, *dim.ToleranceMinus)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", dim.ID),
					fmt.Sprintf("%d", dim.Number),
					dim.Name,
					fmt.Sprintf("%g", dim.Nominal),
					tol,
					dim.Unit,
					yesNo(dim.Critical),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "#", "Name", "Nominal", "Tolerance", "Unit", "Critical"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newDimensionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job> <dimension-id>",
		Short: "Remove a dimension from a job",
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
			dimID, err := parseID(args[1])
			if err != nil {
				return err
			}
			svc, err := ctx.jobService()
			if err != nil {
				return err
			}
			if err := svc.DeleteDimension(cmd.Context(), job.ID, dimID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted dimension %d from %s\n", dimID, job.JobNumber)
			return nil
		},
	}
}

func newDimensionCopyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <dst-job> <src-job>",
		Short: "Copy a dimension plan from another job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			dst, err := resolveJob(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			src, err := resolveJob(cmd.Context(), st, args[1])
			if err != nil {
				return err
			}
			svc, err := ctx.jobService()
			if err != nil {
				return err
			}
			copied, err := svc.CopyDimensions(cmd.Context(), dst.ID, src.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d dimensions from %s to %s\n", copied, src.JobNumber, dst.JobNumber)
			return nil
		},
	}
}
