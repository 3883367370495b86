package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func credentialFlags(cmd *cobra.Command, email, password *string) {
	cmd.Flags().StringVarP(email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(password, "password", "p", "", "Account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
}

func readPassword(cmd *cobra.Command, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSignUpCmd(s *session) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			result, err := s.api.signUp(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case result.Session != nil:
				s.state.signIn(result.Session)
				if err := s.state.save(s.statePath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Signed up and signed in as %s\n", email)
			case result.Resent:
				fmt.Fprintf(out, "This email is registered but not verified. A new verification email was sent to %s\n", email)
			default:
				fmt.Fprintf(out, "Check %s for a verification link, then run: jan-chat signin --email %s\n", email, email)
			}
			return nil
		},
	}
	credentialFlags(cmd, &email, &password)
	return cmd
}

func newSignInCmd(s *session) *cobra.Command {
	var email, password string
	var resend bool
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resend {
				if err := s.api.resendVerification(cmd.Context(), email); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Verification email sent to %s\n", email)
				return nil
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			session, err := s.api.signIn(cmd.Context(), email, pw)
			if err != nil {
				var apiErr *apiError
				if errors.As(err, &apiErr) && apiErr.Body.Reason == "unverified" {
					return fmt.Errorf("%w; run with --resend-verification to get a new link", err)
				}
				return err
			}
			s.state.signIn(session)
			if err := s.state.save(s.statePath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", email)
			return nil
		},
	}
	credentialFlags(cmd, &email, &password)
	cmd.Flags().BoolVar(&resend, "resend-verification", false, "Send the verification email again instead of signing in")
	return cmd
}

func newSignOutCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Revoke the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.state.Session == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			if err := s.api.signOut(cmd.Context(), s.state.Session.RefreshToken); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			s.state.Session = nil
			if err := s.state.save(s.statePath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
