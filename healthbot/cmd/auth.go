package cmd

import (
	"fmt"
	"html/template"

	"healthbot/healthbot/controllers"
	"healthbot/healthbot/render"
	"healthbot/healthbot/utils/color"

	"github.com/spf13/cobra"
)

func newSignUpCmd(a *app) *cobra.Command {
	var form controllers.SignUpForm
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if form.Username == "" {
				if form.Username, err = a.in.Required("Username"); err != nil {
					return err
				}
			}
			if form.Email == "" {
				if form.Email, err = a.in.Required("Email"); err != nil {
					return err
				}
			}
			if form.Password, err = a.in.Password("Password: "); err != nil {
				return err
			}
			if form.ConfirmPassword, err = a.in.Password("Confirm password: "); err != nil {
				return err
			}
			auth := controllers.NewAuthController(a.client, a.store, a.ui)
			return a.result(auth.Register(cmd.Context(), form))
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&form.Email, "email", "e", "", "email address")
	return cmd
}

func newSignInCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and remember the session on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = a.in.Required("Email"); err != nil {
					return err
				}
			}
			password, err := a.in.Password("Password: ")
			if err != nil {
				return err
			}
			auth := controllers.NewAuthController(a.client, a.store, a.ui)
			if err := auth.SignIn(cmd.Context(), email, password); err != nil {
				return a.result(err)
			}
			id, err := a.store.Identity()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.ColorInfo("Signed in as "+id.DisplayName()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return controllers.NewAuthController(a.client, a.store, a.ui).Logout()
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.store.Identity()
			if err != nil {
				return err
			}
			if !id.SignedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), color.ColorMuted("Not signed in."))
				return nil
			}
			return a.print(cmd, view{
				data: map[string]string{"name": id.DisplayName(), "email": id.Email, "initials": id.Initials()},
				text: func() string { return render.IdentityText(id) },
				html: func() (template.HTML, error) { return render.IdentityHTML(id) },
			})
		},
	}
}
