package cmd

import (
	"fmt"
	"time"

	"healthbot/healthbot/controllers"
	"healthbot/healthbot/render"
	"healthbot/healthbot/utils/color"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the backend and show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			status, err := controllers.NewHealthController(a.client).Check(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, color.ColorError(fmt.Sprintf("Backend %s is unavailable: %v", a.cfg.APIURL, err)))
				return shownError{err}
			}
			fmt.Fprintf(out, "%s %s (%s, %s)\n",
				color.ColorInfo("Backend"), a.cfg.APIURL, status.Environment, status.Latency.Round(time.Millisecond))

			id, err := a.store.Identity()
			if err != nil {
				return err
			}
			if id.SignedIn() {
				fmt.Fprintln(out, render.IdentityText(id))
			} else {
				fmt.Fprintln(out, color.ColorMuted("Not signed in."))
			}
			return nil
		},
	}
}
