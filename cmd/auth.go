package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var (
	authUsername string
	authPassword string
	authConfirm  string
)

// readSecret returns val, or the next line of in when val is empty.
func readSecret(cmd *cobra.Command, r *bufio.Reader, prompt, val string) (string, error) {
	if val != "" {
		return val, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		in := bufio.NewReader(cmd.InOrStdin())
		user, err := readSecret(cmd, in, "Username: ", authUsername)
		if err != nil {
			return err
		}
		pass, err := readSecret(cmd, in, "Password: ", authPassword)
		if err != nil {
			return err
		}
		if err := s.auth.Login(cmd.Context(), user, pass); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", strings.TrimSpace(user))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the analytics service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		in := bufio.NewReader(cmd.InOrStdin())
		user, err := readSecret(cmd, in, "Username: ", authUsername)
		if err != nil {
			return err
		}
		pass, err := readSecret(cmd, in, "Password: ", authPassword)
		if err != nil {
			return err
		}
		confirm, err := readSecret(cmd, in, "Confirm password: ", authConfirm)
		if err != nil {
			return err
		}
		if err := s.auth.Register(cmd.Context(), user, pass, confirm); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Registered. Run 'cepv login' to sign in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if err := s.auth.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authUsername, "username", "u", "", "account username (prompted if empty)")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "account password (read from stdin if empty)")
	}
	registerCmd.Flags().StringVar(&authConfirm, "confirm", "", "password confirmation (read from stdin if empty)")
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
}
