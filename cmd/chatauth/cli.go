package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-chat-auth/forms"
	"github.com/jrsteele09/go-chat-auth/internal/bootstrap"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/spf13/cobra"
)

// cliNamespace is the storage namespace shared by all CLI commands.
const cliNamespace = "cli"

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "Account e-mail")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Account password (read from stdin when empty)")
}

// credentials completes missing values from stdin and validates them.
func (f *credentialFlags) credentials(cmd *cobra.Command) (forms.Credentials, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	email, password := f.email, f.password
	if email == "" {
		email = prompt(cmd.OutOrStdout(), reader, "E-mail: ")
	}
	if password == "" {
		password = prompt(cmd.OutOrStdout(), reader, "Password: ")
	}

	creds := forms.Credentials{Email: email, Password: password}.Normalize()
	if err := creds.Validate(); err != nil {
		_, message := forms.FirstError(err)
		return creds, errors.New(message)
	}
	return creds, nil
}

func prompt(out io.Writer, reader *bufio.Reader, label string) string {
	fmt.Fprint(out, label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// withStore runs fn with the CLI session store of the configured storage.
func withStore(ctx context.Context, configPath string, fn func(store *session.Store) error) error {
	c, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	services, err := bootstrap.New(ctx, c)
	if err != nil {
		return err
	}
	defer services.Close()

	store, err := services.Registry.Get(ctx, cliNamespace)
	if err != nil {
		return err
	}
	return fn(store)
}

func authFailure(op string, authErr session.AuthError) error {
	if authErr.IsZero() {
		return fmt.Errorf("%s was interrupted", op)
	}
	if authErr.Field != session.FieldNone {
		return fmt.Errorf("%s failed (%s): %s", op, authErr.Field, authErr.Message)
	}
	return fmt.Errorf("%s failed: %s", op, authErr.Message)
}

func loginCmd(configPath *string) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session in storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := flags.credentials(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), *configPath, func(store *session.Store) error {
				if !store.Login(cmd.Context(), creds.Email, creds.Password) {
					return authFailure("login", store.Error())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", store.Session().Email)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func signupCmd(configPath *string) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := flags.credentials(cmd)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), *configPath, func(store *session.Store) error {
				if !store.SignUp(cmd.Context(), creds.Email, creds.Password) {
					return authFailure("sign up", store.Error())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, run login to sign in\n", creds.Email)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func logoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(store *session.Store) error {
				if err := store.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func whoamiCmd(configPath *string) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(store *session.Store) error {
				if !store.IsAuthenticated() {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				if refresh {
					if err := store.Refresh(cmd.Context()); err != nil {
						return err
					}
				}
				current := store.Session()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "email:      %s\n", current.Email)
				fmt.Fprintf(out, "user id:    %s\n", current.UserID)
				fmt.Fprintf(out, "expires in: %ss\n", current.ExpiresIn)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Renew the ID token before printing")
	return cmd
}
