package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/jobboard/client"
	"github.com/jmcleod/jobboard/session"
)

// passwordInput resolves a password from --password, --password-stdin or
// JOBBOARD_PASSWORD, in that order.
type passwordInput struct {
	value string
	stdin bool
}

func (p *passwordInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.value, "password", "", "Account password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&p.stdin, "password-stdin", false, "Read the password from stdin")
}

func (p *passwordInput) resolve(in io.Reader) (string, error) {
	switch {
	case p.value != "":
		return p.value, nil
	case p.stdin:
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	default:
		if v := os.Getenv("JOBBOARD_PASSWORD"); v != "" {
			return v, nil
		}
		return "", errors.New("a password is required: use --password-stdin or JOBBOARD_PASSWORD")
	}
}

func printUser(cmd *cobra.Command, opts *rootOptions, u *session.User) error {
	return render(cmd, opts, u, func(w io.Writer) error {
		if u == nil {
			_, err := fmt.Fprintln(w, "Logged in.")
			return err
		}
		role := orDash(u.Role)
		if u.IsAdmin() {
			role += " (admin)"
		}
		_, err := fmt.Fprintf(w, "Logged in as %s <%s>\nID:   %s\nRole: %s\n", orDash(u.Name), u.Email, u.ID, role)
		return err
	})
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email string
	var password passwordInput
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password.resolve(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				u, err := a.client.Login(cmd.Context(), client.Credentials{Email: email, Password: pw})
				if err != nil {
					return err
				}
				return printUser(cmd, opts, u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	password.bind(cmd)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCmd(opts *rootOptions) *cobra.Command {
	var name, email string
	var password passwordInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password.resolve(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				u, err := a.client.Signup(cmd.Context(), client.Registration{Name: name, Email: email, Password: pw})
				if err != nil {
					return err
				}
				return printUser(cmd, opts, u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	password.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				if err := a.client.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				u, err := a.client.Profile(cmd.Context())
				if err != nil {
					return err
				}
				return printUser(cmd, opts, u)
			})
		},
	}
}

type statusReport struct {
	State           session.State `json:"state"`
	APIURL          string        `json:"apiUrl"`
	Store           string        `json:"store"`
	Sealed          bool          `json:"sealed"`
	HasAccessToken  bool          `json:"hasAccessToken"`
	HasRefreshToken bool          `json:"hasRefreshToken"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session state without contacting the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				rep := statusReport{
					State:           a.session.State(),
					APIURL:          a.cfg.APIURL,
					Store:           string(a.cfg.Store),
					Sealed:          a.cfg.SealPassphrase != "",
					HasAccessToken:  a.session.AccessToken() != "",
					HasRefreshToken: a.session.RefreshToken() != "",
				}
				return render(cmd, opts, rep, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "State:         %s\nAPI:           %s\nStore:         %s (sealed: %t)\nAccess token:  %t\nRefresh token: %t\n",
						rep.State, rep.APIURL, rep.Store, rep.Sealed, rep.HasAccessToken, rep.HasRefreshToken)
					return err
				})
			})
		},
	}
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				if _, err := a.session.Refresh(cmd.Context()); err != nil {
					if session.RequiresLogin(err) {
						return fmt.Errorf("%w; run `jobboard login`", err)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Access token renewed.")
				return nil
			})
		},
	}
}
