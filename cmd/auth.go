package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/session"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the analysis backend",
	Long: `Sign in with email and password. The token is stored in the local
database and reused by every other command until it expires or you log out.

Missing credentials are prompted for; the password is not echoed.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when empty)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	in := bufio.NewReader(cmd.InOrStdin())
	email := strings.TrimSpace(loginEmail)
	if email == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		email = strings.TrimSpace(line)
	}
	password := loginPassword
	if password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		p, err := readPassword(in)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		password = p
	}
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	a, err := newApp(ctx, config, newLogger(cmd.ErrOrStderr(), "[login] ", quietLevel(config.Log.Level)))
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.session.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", describeSession(s))
	return nil
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		return string(b), err
	}
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	a, err := newApp(ctx, config, newLogger(cmd.ErrOrStderr(), "[logout] ", quietLevel(config.Log.Level)))
	if err != nil {
		return err
	}
	defer a.Close()

	if !session.IsAuthenticated(a.session.Current()) {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
		return nil
	}
	if _, err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	a, err := newApp(ctx, config, newLogger(cmd.ErrOrStderr(), "[whoami] ", quietLevel(config.Log.Level)))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), describeSession(a.session.Current()))
	return nil
}

func describeSession(s session.Session) string {
	auth, ok := s.(session.Authenticated)
	if !ok {
		return "anonymous"
	}
	out := auth.User.DisplayName()
	if auth.User.Email != "" && auth.User.Email != out {
		out += " <" + auth.User.Email + ">"
	}
	if !auth.ExpiresAt.IsZero() {
		out += fmt.Sprintf(" (expires %s)", auth.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return out
}
