package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qcflow/internal/store"
)

func newAttachCommand(ctx *commandContext) *cobra.Command {
	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Link file references to records",
	}

	attachCmd.AddCommand(newAttachAddCommand(ctx))
	attachCmd.AddCommand(newAttachListCommand(ctx))

	return attachCmd
}

func newAttachAddCommand(ctx *commandContext) *cobra.Command {
	var (
		fileName   string
		reference  string
		uploadedBy string
	)

	cmd := &cobra.Command{
		Use:   "add <entity-type> <entity-id>",
		Short: "Attach a file reference to a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, err := parseID(args[1])
			if err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			attachment, err := st.AddAttachment(cmd.Context(), &store.Attachment{
				EntityType: args[0],
				EntityID:   entityID,
				FileName:   fileName,
				Reference:  reference,
				UploadedBy: uploadedBy,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attachment %d (%s) linked to %s/%d\n",
				attachment.ID, attachment.Reference, attachment.EntityType, attachment.EntityID)
			return nil
		},
	}

	cmd.Flags().StringVar(&fileName, "file", "", "Original file name")
	cmd.Flags().StringVar(&reference, "ref", "", "Storage reference (generated when empty)")
	cmd.Flags().StringVar(&uploadedBy, "by", "", "Uploader name")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newAttachListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <entity-type> <entity-id>",
		Short: "List a record's attachments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityID, err := parseID(args[1])
			if err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			attachments, err := st.ListAttachments(cmd.Context(), args[0], entityID)
			if err != nil {
				return err
			}
			if len(attachments) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No attachments on %s/%d\n", args[0], entityID)
				return nil
			}
			rows := make([][]string, 0, len(attachments))
			for _, attachment := range attachments {
				rows = append(rows, []string{
					fmt.Sprintf("%d", attachment.ID),
					attachment.FileName,
					attachment.Reference,
					dash(attachment.UploadedBy),
					formatTimestamp(attachment.UploadedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "File", "Reference", "By", "When"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
