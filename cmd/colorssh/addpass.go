package main

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/mpecarina/colorssh/internal/pass"
)

// runAddPass prompts for a password on the controlling terminal (masked,
// with confirmation) and stores it GPG-encrypted under key, for the
// --add-pass key invocation.
func runAddPass(key string) error {
	if !pass.ValidKeyName(key) {
		return fmt.Errorf("invalid pass key name %q: must match [A-Za-z0-9._-]+", key)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("--add-pass requires an interactive terminal")
	}

	fmt.Fprintf(os.Stdout, "Password for %q: ", key)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stdout)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(os.Stdout, "Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stdout)
	if err != nil {
		return fmt.Errorf("read password confirmation: %w", err)
	}

	if !bytes.Equal(first, second) {
		return fmt.Errorf("passwords did not match")
	}
	if len(first) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	if err := pass.EncryptAndStore(key, first); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Stored encrypted password for %q.\n", key)
	return nil
}
