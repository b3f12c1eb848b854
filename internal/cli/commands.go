package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brainbox-app/brainbox/clientstate"
	"github.com/brainbox-app/brainbox/internal/utils"
	"github.com/brainbox-app/brainbox/userapi"
	"github.com/spf13/cobra"
)

func newSignUpCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and send the verification email",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			return report(cmd, app, app.State.SignUp(cmd.Context(), name, email, password))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignInCmd() *cobra.Command {
	var email, password, googleIDToken string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password, or with a Google ID token",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			if googleIDToken != "" {
				app.Google.IDToken = googleIDToken
				return report(cmd, app, app.State.SignInWithGoogle(cmd.Context()))
			}
			if email == "" || password == "" {
				return errors.New("--email and --password are required unless --google-id-token is set")
			}
			return report(cmd, app, app.State.SignIn(cmd.Context(), email, password))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&googleIDToken, "google-id-token", "", "Google ID token to exchange for a session")
	return cmd
}

func newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			return report(cmd, app, app.State.SignOut(cmd.Context()))
		},
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			profile := app.State.FetchCurrentUser(cmd.Context())
			if profile == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			return printJSON(cmd, profile)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the app would start and the session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			route := app.State.Initialize(cmd.Context())
			state := app.State.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "route: %s\nstatus: %s\n", route, state.Status)
			if state.User != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "user: %s <%s>\n", state.User.ID, state.User.Email)
			}
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid ID token, refreshing it when needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			idToken, err := app.Sessions.Token(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), idToken)
			return nil
		},
	}
}

func newResetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Send a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			return report(cmd, app, app.State.SendPasswordReset(cmd.Context(), email))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResendVerificationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend-verification",
		Short: "Send the verification email again",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			return report(cmd, app, app.State.ResendVerificationEmail(cmd.Context()))
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check whether the email address has been verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			if !app.State.CheckEmailVerified(cmd.Context()) {
				if err := report(cmd, app, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Email not verified yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email verified")
			return nil
		},
	}
}

func newOnboardingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboarding-complete",
		Short: "Record that onboarding has been shown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return appFrom(cmd).State.CompleteOnboarding(cmd.Context())
		},
	}
}

func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the backend profile of the signed-in user",
	}

	var createName, createPassword string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register the signed-in account with the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			account := app.Auth.CurrentAccount()
			if account == nil {
				return errors.New("not signed in")
			}
			name := createName
			if name == "" {
				name = account.DisplayName
			}
			profile, err := app.State.CreateUser(cmd.Context(), userapi.CreateUserRequest{Email: account.Email, Name: name, Password: createPassword})
			return printProfile(cmd, app, profile, err)
		},
	}
	createCmd.Flags().StringVar(&createName, "name", "", "display name, defaults to the account name")
	createCmd.Flags().StringVar(&createPassword, "password", "", "optional backend password")

	var name, email string
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Change the backend profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			account := app.Auth.CurrentAccount()
			if account == nil {
				return errors.New("not signed in")
			}
			var req userapi.UpdateUserRequest
			if cmd.Flags().Changed("name") {
				req.Name = utils.Ptr(name)
			}
			if cmd.Flags().Changed("email") {
				req.Email = utils.Ptr(email)
			}
			profile, err := app.State.UpdateUser(cmd.Context(), account.UID, req)
			return printProfile(cmd, app, profile, err)
		},
	}
	updateCmd.Flags().StringVar(&name, "name", "", "new display name")
	updateCmd.Flags().StringVar(&email, "email", "", "new email address")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the backend profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			account := app.Auth.CurrentAccount()
			if account == nil {
				return errors.New("not signed in")
			}
			return report(cmd, app, app.State.DeleteUser(cmd.Context(), account.UID))
		},
	}

	profileCmd.AddCommand(createCmd, updateCmd, deleteCmd)
	return profileCmd
}

func printProfile(cmd *cobra.Command, app *App, profile *clientstate.Profile, err error) error {
	if err := report(cmd, app, err); err != nil {
		return err
	}
	return printJSON(cmd, profile)
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
