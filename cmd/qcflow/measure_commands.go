package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"qcflow/internal/jobs"
)

func newMeasureCommand(ctx *commandContext) *cobra.Command {
	measureCmd := &cobra.Command{
		Use:   "measure",
		Short: "Record and review measurement reports",
	}

	measureCmd.AddCommand(newMeasureRecordCommand(ctx))
	measureCmd.AddCommand(newMeasureListCommand(ctx))
	measureCmd.AddCommand(newMeasureShowCommand(ctx))

	return measureCmd
}

// parseMeasurementArg parses "dimID=value" pairs from the command line.
func parseMeasurementArg(arg string) (jobs.MeasurementInput, error) {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		return jobs.MeasurementInput{}, fmt.Errorf("invalid measurement %q (want dimension-id=value)", arg)
	}
	dimID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || dimID <= 0 {
		return jobs.MeasurementInput{}, fmt.Errorf("invalid dimension id in %q", arg)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return jobs.MeasurementInput{}, fmt.Errorf("invalid value in %q", arg)
	}
	return jobs.MeasurementInput{DimensionID: dimID, ActualValue: value}, nil
}

func newMeasureRecordCommand(ctx *commandContext) *cobra.Command {
	var (
		reportType string
		inspector  string
		equipment  string
		sample     int
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "record <job> <dimension-id=value>...",
		Short: "Record measurements and evaluate them against tolerances",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			job, err := resolveJob(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			inputs := make([]jobs.MeasurementInput, 0, len(args)-1)
			for _, arg := range args[1:] {
				input, err := parseMeasurementArg(arg)
				if err != nil {
					return err
				}
				input.Equipment = equipment
				input.SampleNumber = sample
				input.MeasuredBy = inspector
				inputs = append(inputs, input)
			}
			svc, err := ctx.jobService()
			if err != nil {
				return err
			}
			report, err := svc.RecordMeasurements(cmd.Context(), job.ID, reportType, inspector, notes, inputs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report %d on %s: %s\n", report.ID, job.JobNumber, report.OverallStatus)
			return nil
		},
	}

	cmd.Flags().StringVar(&reportType, "type", "in_process", "Report type")
	cmd.Flags().StringVar(&inspector, "by", "", "Inspector name")
	cmd.Flags().StringVar(&equipment, "equipment", "", "Measuring equipment")
	cmd.Flags().IntVar(&sample, "sample", 1, "Sample number")
	cmd.Flags().StringVar(&notes, "notes", "", "Report notes")
	return cmd
}

func newMeasureListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <job>",
		Short: "List a job's measurement reports",
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
			reports, err := svc.Reports(cmd.Context(), job.ID)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No measurement reports on %s\n", job.JobNumber)
				return nil
			}
			rows := make([][]string, 0, len(reports))
			for _, report := range reports {
				rows = append(rows, []string{
					fmt.Sprintf("%d", report.ID),
					report.ReportType,
					string(report.OverallStatus),
					dash(report.Inspector),
					formatTimestamp(report.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Verdict", "Inspector", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newMeasureShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show the measurements in a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := ctx.jobService()
			if err != nil {
				return err
			}
			ms, err := svc.Measurements(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(ms) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No measurements in report %d\n", id)
				return nil
			}
			rows := make([][]string, 0, len(ms))
			for _, m := range ms {
				rows = append(rows, []string{
					fmt.Sprintf("%d", m.DimensionID),
					fmt.Sprintf("%d", m.SampleNumber),
					fmt.Sprintf("%g", m.ActualValue),
					m.PassFail,
					dash(m.Equipment),
					dash(m.MeasuredBy),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dimension", "Sample", "Actual", "Verdict", "Equipment", "By"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
