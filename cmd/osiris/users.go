package main

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/osiris/internal/appconfig"
	"pkt.systems/osiris/internal/auth"
	"pkt.systems/osiris/schema"
	"pkt.systems/pslog"
)

const defaultPasswordLength = 20

func newUsersCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage osiris users",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newUsersListCmd(&cfgPath))
	cmd.AddCommand(newUsersAddCmd(&cfgPath))
	cmd.AddCommand(newUsersDeleteCmd(&cfgPath))
	cmd.AddCommand(newUsersChpasswd(&cfgPath))

	return cmd
}

func openUserStore(cmd *cobra.Command, cfgPath string) (appconfig.Config, *auth.Store, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return appconfig.Config{}, nil, err
	}
	logger := pslog.Ctx(cmd.Context())
	store, err := auth.NewStoreWithLogger(cfg.Auth.UserFile, cfg.Auth.SeedUsers, logger)
	if err != nil {
		return appconfig.Config{}, nil, err
	}
	store.SetMinPassword(cfg.Shell.MinPassword)
	return cfg, store, nil
}

func newUsersListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openUserStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, user := range store.LoadUsers() {
				_, _ = fmt.Fprintf(out, "%s\t%s\n", user.Username, user.Email)
			}
			return nil
		},
	}
}

func newUsersAddCmd(cfgPath *string) *cobra.Command {
	var email string
	var passwordFromStdin bool
	var autoPassword bool
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if err := validateUsername(username); err != nil {
				return err
			}
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			password, generated, err := resolvePassword(cmd, passwordFromStdin, autoPassword)
			if err != nil {
				return err
			}
			_, store, err := openUserStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			user, err := store.Signup(email, password, username)
			if err != nil {
				return err
			}
			printUserEnrollment(cmd.OutOrStdout(), user, password, generated)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address for the account")
	cmd.Flags().BoolVar(&passwordFromStdin, "password-from-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&autoPassword, "auto-password", false, "generate a random password")
	return cmd
}

func newUsersDeleteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openUserStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if err := store.DeleteUser(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted user: %s\n", args[0])
			return nil
		},
	}
}

func newUsersChpasswd(cfgPath *string) *cobra.Command {
	var passwordFromStdin bool
	var autoPassword bool
	cmd := &cobra.Command{
		Use:   "chpasswd <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if err := validateUsername(username); err != nil {
				return err
			}
			password, generated, err := resolvePassword(cmd, passwordFromStdin, autoPassword)
			if err != nil {
				return err
			}
			cfg, store, err := openUserStore(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if utf8.RuneCountInString(password) < cfg.Shell.MinPassword {
				return fmt.Errorf("%w: need %d characters", schema.ErrPasswordTooShort, cfg.Shell.MinPassword)
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if err := store.UpdatePassword(username, hash); err != nil {
				return err
			}
			user, _ := store.Lookup(username)
			printUserEnrollment(cmd.OutOrStdout(), user, password, generated)
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordFromStdin, "password-from-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&autoPassword, "auto-password", false, "generate a random password")
	return cmd
}

func resolvePassword(cmd *cobra.Command, fromStdin, auto bool) (string, bool, error) {
	if fromStdin && auto {
		return "", false, errors.New("choose one of --password-from-stdin or --auto-password")
	}
	if fromStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", false, err
		}
		pass := strings.TrimSpace(string(data))
		if pass == "" {
			return "", false, errors.New("password from stdin is empty")
		}
		return pass, false, nil
	}
	if auto {
		pass, err := generatePassword(defaultPasswordLength)
		if err != nil {
			return "", false, err
		}
		return pass, true, nil
	}
	in := cmd.InOrStdin()
	lines := bufio.NewReader(in)
	passphrase, err := promptPassword(in, lines, "Password: ", cmd.ErrOrStderr())
	if err != nil {
		return "", false, err
	}
	confirm, err := promptPassword(in, lines, "Confirm password: ", cmd.ErrOrStderr())
	if err != nil {
		return "", false, err
	}
	if passphrase != confirm {
		return "", false, errors.New("passwords do not match")
	}
	if passphrase == "" {
		return "", false, errors.New("password is empty")
	}
	return passphrase, false, nil
}

// promptPassword reads without echo when in is a terminal and falls back to
// a plain line read otherwise.
func promptPassword(in io.Reader, lines *bufio.Reader, prompt string, out io.Writer) (string, error) {
	_, _ = io.WriteString(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		_, _ = io.WriteString(out, "\n")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	line, err := lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		length = defaultPasswordLength
	}
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	for i, b := range bytes {
		bytes[i] = charset[int(b)%len(charset)]
	}
	return string(bytes), nil
}

func printUserEnrollment(w io.Writer, user auth.User, password string, showPassword bool) {
	_, _ = fmt.Fprintf(w, "username: %s\n", user.Username)
	if user.Email != "" {
		_, _ = fmt.Fprintf(w, "email: %s\n", user.Email)
	}
	if user.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", user.ID)
	}
	if showPassword && password != "" {
		_, _ = fmt.Fprintf(w, "password: %s\n", password)
	}
}

func validateUsername(username string) error {
	if err := schema.ValidateUsername(username); err != nil {
		return errors.New("invalid username: must match [a-z0-9._-]")
	}
	return nil
}
