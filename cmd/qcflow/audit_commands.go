package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcflow/internal/store"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var (
		entityType string
		entityID   int64
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			var entries []*store.AuditEntry
			if entityType != "" && entityID > 0 {
				entries, err = st.ListAudit(cmd.Context(), entityType, entityID, limit)
			} else {
				entries, err = st.RecentAudit(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit entries")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					formatTimestamp(entry.CreatedAt),
					dash(entry.Actor),
					entry.Action,
					fmt.Sprintf("%s/%d", entry.EntityType, entry.EntityID),
					entry.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "Actor", "Action", "Entity", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&entityType, "entity", "", "Entity type filter (job, error_report, ...)")
	cmd.Flags().Int64Var(&entityID, "id", 0, "Entity id filter")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show")
	return cmd
}
