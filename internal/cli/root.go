package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/brainbox-app/brainbox/clientstate"
	"github.com/brainbox-app/brainbox/internal/config"
	"github.com/brainbox-app/brainbox/internal/logging"
	"github.com/spf13/cobra"
)

// AppFactory builds the client stack for one command invocation.
type AppFactory func(ctx context.Context) (*App, error)

// errReported marks failures already shown to the user as a toast.
var errReported = errors.New("reported")

type contextKey struct{}

func appFrom(cmd *cobra.Command) *App {
	return cmd.Context().Value(contextKey{}).(*App)
}

// NewRootCommand builds the brainbox command tree. newApp runs once before each subcommand.
func NewRootCommand(newApp AppFactory) *cobra.Command {
	var app *App

	rootCmd := &cobra.Command{
		Use:           "brainbox",
		Short:         "BrainBox account and session client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, err = newApp(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, app))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newSignUpCmd(),
		newSignInCmd(),
		newSignOutCmd(),
		newWhoAmICmd(),
		newStatusCmd(),
		newTokenCmd(),
		newResetPasswordCmd(),
		newResendVerificationCmd(),
		newVerifyCmd(),
		newOnboardingCmd(),
		newProfileCmd(),
	)
	return rootCmd
}

// Execute runs the CLI against the environment configuration and exits non-zero on failure.
func Execute() {
	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	rootCmd := NewRootCommand(func(ctx context.Context) (*App, error) {
		return NewFromConfig(ctx, c)
	})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// report prints the visible toast, if any, and marks err as shown.
func report(cmd *cobra.Command, app *App, err error) error {
	toast := app.State.Get().Toast
	if toast.Visible {
		out := cmd.OutOrStdout()
		if toast.Type == clientstate.ToastError {
			out = cmd.ErrOrStderr()
		}
		fmt.Fprintf(out, "[%s] %s\n", toast.Type, toast.Message)
	}
	if err == nil {
		return nil
	}
	if toast.Visible {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return err
}
