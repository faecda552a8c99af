package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func registerCmd(a *app) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			pw, err := passwordFrom(cmd, password)
			if err != nil {
				return err
			}

			if err := a.client.Register(cmd.Context(), username, email, pw); err != nil {
				return fmt.Errorf("register: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), success("Registered and logged in."))
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username (defaults to the email)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")

	return cmd
}

func loginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a username or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			pw, err := passwordFrom(cmd, password)
			if err != nil {
				return err
			}

			if err := a.client.Login(cmd.Context(), username, pw); err != nil {
				return fmt.Errorf("login: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), success("Login successful. Tokens stored in "+a.cfg.path))
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username or email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")

	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("Logged out."))
			return nil
		},
	}
}

func passwordFrom(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}
