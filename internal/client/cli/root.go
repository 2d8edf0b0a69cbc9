package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/filedash/internal/client/config"
	"github.com/dmitrijs2005/filedash/internal/logging"
	"github.com/spf13/cobra"
)

// appFactory builds the App once flags are parsed. Tests replace it.
var appFactory = func(ctx context.Context, cfg *config.Config, logger logging.Logger) (commandApp, error) {
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// commandApp is what the cobra commands drive.
type commandApp interface {
	execIface
	Shell(ctx context.Context)
	Close() error
}

// NewRootCmd assembles the filedash command tree. Without a subcommand it
// starts the interactive shell. The returned func closes the app built by
// the command, if any.
func NewRootCmd() (*cobra.Command, func() error) {
	var app commandApp

	root := &cobra.Command{
		Use:           "filedash",
		Short:         "Personal file dashboard client",
		Long:          "Upload, list, download and delete files stored on a filedash server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
			app, err = appFactory(cmd.Context(), cfg, logger)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Shell(cmd.Context())
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	current := func() commandApp { return app }

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				current().Shell(cmd.Context())
				return nil
			},
		},
		&cobra.Command{
			Use:   "register",
			Short: "Create an account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return current().Register(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "login",
			Short: "Log in and remember the session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return current().Login(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the stored session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return current().Logout(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the logged in account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return current().WhoAmI(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "upload <path>",
			Short: "Upload a file (Ctrl-C cancels)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return current().Upload(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "list [page] [name|date|size] [asc|desc]",
			Short: "List files",
			Args:  cobra.MaximumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return current().List(cmd.Context(), args)
			},
		},
		&cobra.Command{
			Use:   "download <id>",
			Short: "Download a file into the download directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return current().Download(cmd.Context(), args[0])
			},
		},
		newDeleteCmd(current),
	)

	closeApp := func() error {
		if app == nil {
			return nil
		}
		return app.Close()
	}
	return root, closeApp
}

func newDeleteCmd(current func() commandApp) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return current().Delete(cmd.Context(), args[0], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// Execute runs the command tree with ctx and prints a failure to stderr.
func Execute(ctx context.Context, args []string) int {
	root, closeApp := NewRootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
