package cmd

import (
	"fmt"
	"html/template"

	"healthbot/healthbot/controllers"
	"healthbot/healthbot/render"
	"healthbot/healthbot/types"

	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"history"},
		Short:   "List past conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := enterChat(cmd, a)
			if err != nil {
				return err
			}
			v := chat.View()
			return a.print(cmd, view{
				data: v.Sessions,
				text: func() string { return render.SessionsText(v.Sessions, v.ActiveSession) },
				html: func() (template.HTML, error) { return render.SessionsHTML(v.Sessions, v.ActiveSession) },
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <n|id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := enterChat(cmd, a)
			if err != nil {
				return err
			}
			id, err := pick(args[0], sessionIDs(chat))
			if err != nil {
				return err
			}
			if err := chat.SelectSession(cmd.Context(), id); err != nil {
				return a.result(err)
			}
			thread := chat.View().Thread
			msgs := make([]types.ChatMessage, 0, len(thread))
			for _, e := range thread {
				msgs = append(msgs, e.Message)
			}
			return a.print(cmd, view{
				data: msgs,
				text: func() string { return render.ThreadText(thread) },
				html: func() (template.HTML, error) { return render.ThreadHTML(thread) },
			})
		},
	}

	rm := &cobra.Command{
		Use:     "rm <n|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := enterChat(cmd, a)
			if err != nil {
				return err
			}
			id, err := pick(args[0], sessionIDs(chat))
			if err != nil {
				return err
			}
			if err := chat.DeleteSession(cmd.Context(), id); err != nil {
				return a.result(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.SessionsText(chat.View().Sessions, ""))
			return nil
		},
	}

	cmd.AddCommand(show, rm)
	return cmd
}

// enterChat loads both chat sidebars, as opening the chat page does.
func enterChat(cmd *cobra.Command, a *app) (*controllers.ChatController, error) {
	chat := controllers.NewChatController(a.client, a.store, a.ui)
	if err := chat.Enter(cmd.Context()); err != nil {
		return nil, a.result(err)
	}
	return chat, nil
}
