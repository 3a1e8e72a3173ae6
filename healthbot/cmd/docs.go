package cmd

import (
	"fmt"
	"html/template"

	"healthbot/healthbot/render"

	"github.com/spf13/cobra"
)

func newDocsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   "List uploaded medical documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := enterChat(cmd, a)
			if err != nil {
				return err
			}
			v := chat.View()
			return a.print(cmd, view{
				data: v.Documents,
				text: func() string { return render.DocumentsText(v.Documents, v.Uploading) },
				html: func() (template.HTML, error) { return render.DocumentsHTML(v.Documents, v.Uploading) },
			})
		},
	}

	upload := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF so the assistant can answer from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := enterChat(cmd, a)
			if err != nil {
				return err
			}
			return a.result(uploadFile(cmd.Context(), chat, args[0]))
		},
	}

	rm := &cobra.Command{
		Use:     "rm <n|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := enterChat(cmd, a)
			if err != nil {
				return err
			}
			id, err := pick(args[0], documentIDs(chat))
			if err != nil {
				return err
			}
			if err := chat.DeleteDocument(cmd.Context(), id); err != nil {
				return a.result(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.DocumentsText(chat.View().Documents, ""))
			return nil
		},
	}

	cmd.AddCommand(upload, rm)
	return cmd
}
