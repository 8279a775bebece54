package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	newUsername string
	newEmail    string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a user from the command line",
	Long:  `Register a user with the same rules as POST /api/auth/register. The password is prompted for.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, lg, err := bootstrap()
		if err != nil {
			return err
		}

		password, err := promptPassword(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		gdb, err := openDatabase(ctx, cfg, cfg.Database.AutoMigrate)
		if err != nil {
			return err
		}
		defer closeDatabase(gdb, lg)

		registered, err := newAuthService(cfg, gdb, lg).Register(ctx, auth.RegisterDTO{
			Username: newUsername,
			Email:    newEmail,
			Password: password,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", registered.Username, registered.ID)
		return nil
	},
}

// promptPassword reads the password twice without echo on a terminal, or
// one line from stdin when input is piped.
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(out, "Confirm password: ")
	second, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func init() {
	createUserCmd.Flags().StringVarP(&newUsername, "username", "u", "", "username (3-20 characters)")
	createUserCmd.Flags().StringVarP(&newEmail, "email", "e", "", "email address")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("email")

	userCmd.AddCommand(createUserCmd)
}
