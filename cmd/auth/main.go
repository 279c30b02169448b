//go:generate swag init -g internal/auth/http/router.go -d ../../ -o ../../api/auth --parseDependency

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aussiebroadwan/patchnotes/internal/auth/app"
	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/cryptox"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "auth",
		Short:         "Patchnotes authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       app.BuildVersion,
		RunE:          runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			Args:  cobra.NoArgs,
			RunE:  runMigrate,
		},
		newSeedAdminCmd(),
	)
	return root
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(ctx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	db, err := app.OpenStore(ctx, cfg, app.NewLogger(cfg))
	if err != nil {
		return err
	}
	return db.Close()
}

func newSeedAdminCmd() *cobra.Command {
	var id, username, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an ADMIN user, or promote an existing one",
		Long: "Creates the user with role ADMIN, or promotes it when the id exists.\n" +
			"The password is prompted for when --password is not given; an empty\n" +
			"answer keeps the current password of an existing user.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("password") {
				password, err = promptPassword(cmd)
				if err != nil {
					return err
				}
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			logger := app.NewLogger(cfg)
			cryptox.SetPepperPath(cfg.PepperFile)
			if err := cryptox.LoadPepper(); err != nil {
				return fmt.Errorf("failed to load pepper: %w", err)
			}

			db, err := app.OpenStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			users := &service.UserService{Store: db}
			u, err := users.SeedAdmin(ctx, id, username, password)
			if err != nil {
				return err
			}

			logger.Info("admin seeded", "user_id", u.ID, "username", u.Username)
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s ready (api key %s)\n", u.ID, u.APIKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "user id (required)")
	cmd.Flags().StringVar(&username, "username", "", "login name (required)")
	cmd.Flags().StringVar(&password, "password", "", "password; prompted for when omitted")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

// promptPassword reads a password without echo from a terminal, or a single
// line from piped stdin.
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd()) // #nosec G115 - file descriptors fit in int
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(first) == 0 {
		return "", nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
