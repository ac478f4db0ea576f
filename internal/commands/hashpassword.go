package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var (
	errEmptyPassword = errors.New("password cannot be empty")
	errMismatch      = errors.New("passwords do not match")
)

// HashPassword handles the hash-password subcommand. It prompts for a
// password without echo and prints a bcrypt hash for
// auth.admin_password_hash.
func HashPassword(args []string) {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: activityportal hash-password [OPTIONS]\n\n")
		fmt.Fprintf(os.Stderr, "Prints a bcrypt hash for the action log admin password.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	password := readPassword("Enter password:   ")
	confirm := readPassword("Confirm password: ")

	if err := writeHash(os.Stdout, password, confirm, *cost); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func writeHash(w io.Writer, password, confirm string, cost int) error {
	if password == "" {
		return errEmptyPassword
	}
	if password != confirm {
		return errMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintf(w, "AUTH_ADMIN_PASSWORD_HASH='%s'\n", hash)
	return nil
}

func readPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		os.Exit(1)
	}
	return string(password)
}
