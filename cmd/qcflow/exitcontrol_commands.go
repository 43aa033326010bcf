package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcflow/internal/exitcontrol"
)

func newExitControlCommand(ctx *commandContext) *cobra.Command {
	exitCmd := &cobra.Command{
		Use:   "exit",
		Short: "Run exit-control inspections",
	}

	exitCmd.AddCommand(newExitCreateCommand(ctx))
	exitCmd.AddCommand(newExitAddSampleCommand(ctx))
	exitCmd.AddCommand(newExitRecordCommand(ctx))
	exitCmd.AddCommand(newExitCompleteCommand(ctx))
	exitCmd.AddCommand(newExitShowCommand(ctx))

	return exitCmd
}

func newExitCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		lot       int
		inspector string
		notes     string
	)

	cmd := &cobra.Command{
		Use:   "create <job>",
		Short: "Open an exit control with the default sample plan",
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
			controller, err := ctx.exitController()
			if err != nil {
				return err
			}
			ec, err := controller.Create(cmd.Context(), job.ID, lot, inspector, notes)
			if err != nil {
				return err
			}
			positions := exitcontrol.SamplePositions(ec.LotQuantity)
			fmt.Fprintf(cmd.OutOrStdout(), "Exit control %d opened on %s: %d samples for lot of %d\n",
				ec.ID, job.JobNumber, len(positions), ec.LotQuantity)
			return nil
		},
	}

	cmd.Flags().IntVar(&lot, "lot", 0, "Lot quantity (defaults to the job quantity)")
	cmd.Flags().StringVar(&inspector, "by", "", "Inspector name")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	return cmd
}

func newExitAddSampleCommand(ctx *commandContext) *cobra.Command {
	var position int

	cmd := &cobra.Command{
		Use:   "add-sample <exit-control-id>",
		Short: "Add an extra position to the sample plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			controller, err := ctx.exitController()
			if err != nil {
				return err
			}
			if err := controller.AddSample(cmd.Context(), id, position); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added position %d to exit control %d\n", position, id)
			return nil
		},
	}

	cmd.Flags().IntVar(&position, "position", 0, "Position within the lot")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func newExitRecordCommand(ctx *commandContext) *cobra.Command {
	var (
		position int
		dimsOK   bool
		visualOK bool
		surfOK   bool
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "record <exit-control-id>",
		Short: "Record one sample's inspection result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			controller, err := ctx.exitController()
			if err != nil {
				return err
			}
			result := exitcontrol.SampleResult{
				DimensionsOK: dimsOK,
				VisualOK:     visualOK,
				SurfaceOK:    surfOK,
				Notes:        notes,
			}
			ec, err := controller.RecordSample(cmd.Context(), id, position, result)
			if err != nil {
				return err
			}
			verdict := "pass"
			if !result.Pass() {
				verdict = "fail"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample %d recorded (%s); lot is %s\n", position, verdict, ec.OverallStatus)
			return nil
		},
	}

	cmd.Flags().IntVar(&position, "position", 0, "Position within the lot")
	cmd.Flags().BoolVar(&dimsOK, "dims-ok", false, "Dimensions within tolerance")
	cmd.Flags().BoolVar(&visualOK, "visual-ok", false, "Visual check passed")
	cmd.Flags().BoolVar(&surfOK, "surface-ok", false, "Surface finish acceptable")
	cmd.Flags().StringVar(&notes, "notes", "", "Sample notes")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func newExitCompleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <exit-control-id>",
		Short: "Finalize an exit control once every sample is recorded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			controller, err := ctx.exitController()
			if err != nil {
				return err
			}
			ec, err := controller.Complete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exit control %d is %s\n", ec.ID, ec.OverallStatus)
			return nil
		},
	}
}

func newExitShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <exit-control-id>",
		Short: "Show an exit control and its samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			controller, err := ctx.exitController()
			if err != nil {
				return err
			}
			ec, err := controller.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			samples, err := controller.Samples(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exit control %d: lot of %d, %s\n", ec.ID, ec.LotQuantity, ec.OverallStatus)
			if ec.Inspector != "" {
				fmt.Fprintf(out, "Inspector: %s\n", ec.Inspector)
			}
			rows := make([][]string, 0, len(samples))
			for _, sample := range samples {
				rows = append(rows, []string{
					fmt.Sprintf("%d", sample.Position),
					boolMark(sample.DimensionsOK),
					boolMark(sample.VisualOK),
					boolMark(sample.SurfaceOK),
					boolMark(sample.OverallPass),
					dash(sample.Notes),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Pos", "Dims", "Visual", "Surface", "Pass", "Notes"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

// boolMark renders a nullable sub-check verdict for the sample table.
func boolMark(v *bool) string {
	if v == nil {
		return "-"
	}
	if *v {
		return "yes"
	}
	return "no"
}
