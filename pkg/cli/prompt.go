package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"guacaman/internal/domain"
)

// promptPassword reads a password from the terminal without echo, asking
// twice to catch typos. Non-interactive callers must pass --password.
func promptPassword(what string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", domain.ErrUsage("stdin is not a terminal; pass --password explicitly")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", what)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Retype password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", domain.ErrUsage("passwords do not match")
	}
	return string(first), nil
}
