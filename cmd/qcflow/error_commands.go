package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"qcflow/internal/nonconformance"
	"qcflow/internal/store"
)

func newErrorCommand(ctx *commandContext) *cobra.Command {
	errorCmd := &cobra.Command{
		Use:   "error",
		Short: "File and work nonconformance reports",
	}

	errorCmd.AddCommand(newErrorReportCommand(ctx))
	errorCmd.AddCommand(newErrorStatusCommand(ctx))
	errorCmd.AddCommand(newErrorTransitionCommand(ctx, "investigate", "investigating", "Start investigating an error report"))
	errorCmd.AddCommand(newErrorTransitionCommand(ctx, "resolve", "resolved", "Mark an error report resolved"))
	errorCmd.AddCommand(newErrorTransitionCommand(ctx, "close", "closed", "Close a resolved error report"))
	errorCmd.AddCommand(newErrorTransitionCommand(ctx, "reopen", "open", "Reopen an error report, clearing resolution dates"))
	errorCmd.AddCommand(newErrorUpdateCommand(ctx))
	errorCmd.AddCommand(newErrorListCommand(ctx))
	errorCmd.AddCommand(newErrorShowCommand(ctx))

	return errorCmd
}

func newErrorReportCommand(ctx *commandContext) *cobra.Command {
	var (
		reportedBy string
		stage      string
		severity   string
		desc       string
		affected   int
		assignedTo string
		materialID int64
		externalID int64
	)

	cmd := &cobra.Command{
		Use:   "report <job>",
		Short: "File an error report against a job",
		Long: `File an error report against a job. Link --material or --external to tie
the report to a rejected receipt or outsourced process; linked reports reject
their origin and carry its supplier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if materialID > 0 && externalID > 0 {
				return fmt.Errorf("--material and --external are mutually exclusive")
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			job, err := resolveJob(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			input := nonconformance.Report{
				JobID:       job.ID,
				ReportedBy:  reportedBy,
				Stage:       stage,
				Severity:    severity,
				Description: desc,
				AssignedTo:  assignedTo,
			}
			if cmd.Flags().Changed("affected") {
				input.AffectedQuantity = &affected
			}
			var report *store.ErrorReport
			switch {
			case materialID > 0:
				report, err = engine.ReportMaterial(cmd.Context(), materialID, input)
			case externalID > 0:
				report, err = engine.ReportExternal(cmd.Context(), externalID, input)
			default:
				report, err = engine.ReportInternal(cmd.Context(), input)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Error report %d (%s/%s) filed on %s\n",
				report.ID, report.ErrorType, report.Severity, job.JobNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&reportedBy, "by", "", "Reporter name")
	cmd.Flags().StringVar(&stage, "stage", "", "Stage the error was found in (defaults to the job's stage)")
	cmd.Flags().StringVar(&severity, "severity", "", "Severity (minor, major, critical)")
	cmd.Flags().StringVar(&desc, "description", "", "What went wrong")
	cmd.Flags().IntVar(&affected, "affected", 0, "Affected quantity")
	cmd.Flags().StringVar(&assignedTo, "assign", "", "Assignee")
	cmd.Flags().Int64Var(&materialID, "material", 0, "Material control id this report stems from")
	cmd.Flags().Int64Var(&externalID, "external", 0, "External process id this report stems from")
	_ = cmd.MarkFlagRequired("severity")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newErrorStatusCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "status <report-id> <open|investigating|resolved|closed>",
		Short: "Move an error report through its lifecycle",
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
			report, err := engine.Transition(cmd.Context(), id, args[1], actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Error report %d is %s\n", report.ID, report.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "Actor name")
	return cmd
}

func newErrorTransitionCommand(ctx *commandContext, verb, target, short string) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   verb + " <report-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			report, err := engine.Transition(cmd.Context(), id, target, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Error report %d is %s\n", report.ID, report.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "Actor name")
	return cmd
}

func newErrorUpdateCommand(ctx *commandContext) *cobra.Command {
	var (
		severity    string
		desc        string
		affected    int
		disposition string
		rootCause   string
		corrective  string
		assignedTo  string
	)

	cmd := &cobra.Command{
		Use:   "update <report-id>",
		Short: "Update an error report's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			existing, err := engine.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			draft := *existing
			if cmd.Flags().Changed("severity") {
				draft.Severity = store.Severity(severity)
			}
			if cmd.Flags().Changed("description") {
				draft.Description = desc
			}
			if cmd.Flags().Changed("affected") {
				draft.AffectedQuantity = &affected
			}
			if cmd.Flags().Changed("disposition") {
				draft.Disposition = disposition
			}
			if cmd.Flags().Changed("root-cause") {
				draft.RootCause = rootCause
			}
			if cmd.Flags().Changed("corrective-action") {
				draft.CorrectiveAction = corrective
			}
			if cmd.Flags().Changed("assign") {
				draft.AssignedTo = assignedTo
			}
			report, err := engine.UpdateDetails(cmd.Context(), &draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Error report %d updated\n", report.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&severity, "severity", "", "Severity (minor, major, critical)")
	cmd.Flags().StringVar(&desc, "description", "", "Description")
	cmd.Flags().IntVar(&affected, "affected", 0, "Affected quantity")
	cmd.Flags().StringVar(&disposition, "disposition", "", "Disposition (rework, scrap, use-as-is, ...)")
	cmd.Flags().StringVar(&rootCause, "root-cause", "", "Root cause")
	cmd.Flags().StringVar(&corrective, "corrective-action", "", "Corrective action")
	cmd.Flags().StringVar(&assignedTo, "assign", "", "Assignee")
	return cmd
}

func newErrorListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list <job>",
		Short: "List a job's error reports",
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
			var statuses []store.ErrorStatus
			for _, raw := range strings.Split(statusFilter, ",") {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				status, ok := store.ParseErrorStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			reports, err := engine.List(cmd.Context(), job.ID, statuses...)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No error reports on %s\n", job.JobNumber)
				return nil
			}
			rows := make([][]string, 0, len(reports))
			for _, report := range reports {
				rows = append(rows, []string{
					fmt.Sprintf("%d", report.ID),
					string(report.ErrorType),
					string(report.Severity),
					string(report.Status),
					dash(report.AssignedTo),
					formatDate(&report.FoundDate),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Severity", "Status", "Assigned", "Found"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter")
	return cmd
}

func newErrorShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show an error report in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			report, err := engine.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Error report %d (%s)\n", report.ID, report.ErrorType)
			fmt.Fprintf(out, "Status:      %s\n", report.Status)
			fmt.Fprintf(out, "Severity:    %s\n", report.Severity)
			fmt.Fprintf(out, "Stage:       %s\n", stageDisplay(report.Stage))
			fmt.Fprintf(out, "Reported by: %s\n", dash(report.ReportedBy))
			fmt.Fprintf(out, "Assigned to: %s\n", dash(report.AssignedTo))
			if report.AffectedQuantity != nil {
				fmt.Fprintf(out, "Affected:    %d\n", *report.AffectedQuantity)
			}
			if report.SupplierID != nil {
				fmt.Fprintf(out, "Supplier:    %d\n", *report.SupplierID)
			}
			fmt.Fprintf(out, "Found:       %s\n", formatDate(&report.FoundDate))
			fmt.Fprintf(out, "Resolved:    %s\n", formatDate(report.ResolvedDate))
			fmt.Fprintf(out, "Closed:      %s\n", formatDate(report.ClosedDate))
			fmt.Fprintf(out, "Description: %s\n", report.Description)
			if report.Disposition != "" {
				fmt.Fprintf(out, "Disposition: %s\n", report.Disposition)
			}
			if report.RootCause != "" {
				fmt.Fprintf(out, "Root cause:  %s\n", report.RootCause)
			}
			if report.CorrectiveAction != "" {
				fmt.Fprintf(out, "Corrective:  %s\n", report.CorrectiveAction)
			}
			return nil
		},
	}
}
