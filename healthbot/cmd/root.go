// Package cmd is the terminal front end of healthbot.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"healthbot/healthbot/config"
	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/sources/storage"
	"healthbot/healthbot/utils/color"
	"healthbot/healthbot/utils/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "unknown"
)

// app holds what every command needs once the root has resolved its flags.
type app struct {
	cfg    config.Config
	store  *storage.Store
	client *api.Client
	ui     *terminalUI
	in     *prompter
	format string
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.ErrorLogger.Error("close state store", zap.Error(err))
		}
		a.store = nil
	}
	logging.Sync()
}

// shownError wraps a failure the user has already been told about.
type shownError struct{ err error }

func (e shownError) Error() string { return e.err.Error() }
func (e shownError) Unwrap() error { return e.err }

// result suppresses the generic error line when the controller already
// printed a notice for err.
func (a *app) result(err error) error {
	if err == nil || !a.ui.errorShown() {
		return err
	}
	return shownError{err}
}

// NewRootCmd builds the command tree; a holds the resolved environment after
// the root's pre-run.
func NewRootCmd() (*cobra.Command, *app) {
	a := &app{}
	var (
		configPath string
		apiURL     string
		assumeYes  bool
		noColor    bool
		asJSON     bool
	)

	root := &cobra.Command{
		Use:   "healthbot",
		Short: "Terminal client for the health assistant",
		Long: `healthbot signs you in to the health assistant backend, lets you chat with it
about your uploaded medical documents and keeps your health profile up to date.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				a.format = formatJSON
			}
			if err := validFormat(a.format); err != nil {
				return err
			}
			if noColor || a.format != formatText {
				color.Disable()
			}
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.APIURL = apiURL
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if err := logging.InitLogger(cfg.LogDir, cfg.LogLevel); err != nil {
				return err
			}
			store, err := storage.Open(cfg.StatePath())
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.store = store
			a.client = api.NewClient(cfg.APIURL, store, api.WithTimeout(cfg.Timeout))
			a.in = newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			a.ui = newTerminalUI(cmd.OutOrStdout(), a.in, assumeYes)

			ctx := logging.WithTraceID(cmd.Context(), uuid.NewString())
			cmd.SetContext(ctx)
			logging.AppLogger.Info("command started",
				zap.String("command", cmd.CommandPath()),
				zap.String("api", cfg.APIURL),
				zap.String("trace_id", logging.TraceID(ctx)),
			)
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file path (default is <data dir>/config.yaml)")
	flags.StringVar(&apiURL, "api", "", "backend base URL, overrides the config")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVar(&a.format, "format", formatText, "output format for lists: text, json or html")
	flags.BoolVar(&asJSON, "json", false, "shorthand for --format json")

	root.AddCommand(
		newSignUpCmd(a),
		newSignInCmd(a),
		newLogoutCmd(a),
		newWhoAmICmd(a),
		newStatusCmd(a),
		newChatCmd(a),
		newSessionsCmd(a),
		newDocsCmd(a),
		newProfileCmd(a),
	)
	return root, a
}

// Execute runs the CLI and exits non-zero on failure. It is called by main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, a := NewRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	a.close()
	if err == nil {
		return
	}
	var shown shownError
	if !errors.As(err, &shown) {
		fmt.Fprintln(os.Stderr, color.ColorError("Error: "+err.Error()))
	}
	os.Exit(1)
}
