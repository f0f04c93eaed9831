// Package pass resolves a host's GPG-encrypted password key into a
// plaintext password for sshpass-driven auto-login, falling back cleanly
// to the standard SSH password prompt whenever the resolution can't be
// completed.
package pass

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

const (
	gpgCommand       = "gpg"
	sshpassCommand   = "sshpass"
	gpgProbeArg      = "--version"
	sshpassProbeArg  = "-V"
	maxDecryptAttempts = 3

	// FallbackNotice is the message shown when auto-login can't proceed
	// and the session falls back to an interactive password prompt.
	FallbackNotice = "Password auto-login unavailable; falling back to standard SSH password prompt."
)

// FallbackReason explains why Resolve could not produce a password.
type FallbackReason int

const (
	InvalidPassKeyName FallbackReason = iota
	MissingKeyFile
	MissingGPG
	MissingSSHPass
	DecryptFailedAfterRetries
)

func (r FallbackReason) String() string {
	switch r {
	case InvalidPassKeyName:
		return "invalid pass key name"
	case MissingKeyFile:
		return "missing key file"
	case MissingGPG:
		return "gpg not available"
	case MissingSSHPass:
		return "sshpass not available"
	case DecryptFailedAfterRetries:
		return "decrypt failed after retries"
	default:
		return "unknown"
	}
}

// Result is the outcome of resolving a pass key.
type Result struct {
	Password string
	Disabled bool
	Fallback FallbackReason
	Failed   bool // true when Fallback is meaningful (distinguishes zero-value FallbackReason from "no fallback")
}

// Cache memoizes decrypted passwords for the process lifetime and the
// availability of the gpg/sshpass binaries, so repeated resolutions for
// the same key (or probe checks across many hosts) don't re-shell out.
type Cache struct {
	mu sync.Mutex

	passwords map[string]string

	gpgAvailable     *bool
	sshpassAvailable *bool
}

// NewCache returns an empty, ready-to-use Cache.
func NewCache() *Cache {
	return &Cache{passwords: make(map[string]string)}
}

// Resolve decrypts the GPG-encrypted password file for passKey and
// returns it, memoizing the result for subsequent calls within this
// Cache's lifetime. An empty passKey resolves to Disabled (no #_pass
// directive was set on the host). Any other failure yields a Fallback
// result describing why, never an error — callers proceed to an
// interactive password prompt either way.
func (c *Cache) Resolve(passKey string) Result {
	if passKey == "" {
		return Result{Disabled: true}
	}
	if !ValidKeyName(passKey) {
		return Result{Failed: true, Fallback: InvalidPassKeyName}
	}

	c.mu.Lock()
	if cached, ok := c.passwords[passKey]; ok {
		c.mu.Unlock()
		return Result{Password: cached}
	}
	c.mu.Unlock()

	if !c.probeSSHPass() {
		return Result{Failed: true, Fallback: MissingSSHPass}
	}
	if !c.probeGPG() {
		return Result{Failed: true, Fallback: MissingGPG}
	}

	keyPath, err := KeyPath(passKey)
	if err != nil {
		return Result{Failed: true, Fallback: MissingKeyFile}
	}
	if fi, err := os.Stat(keyPath); err != nil || fi.IsDir() {
		return Result{Failed: true, Fallback: MissingKeyFile}
	}

	password, reason, ok := decryptWithRetry(keyPath)
	if !ok {
		return Result{Failed: true, Fallback: reason}
	}

	c.mu.Lock()
	c.passwords[passKey] = password
	c.mu.Unlock()
	return Result{Password: password}
}

func (c *Cache) probeGPG() bool {
	c.mu.Lock()
	if c.gpgAvailable != nil {
		v := *c.gpgAvailable
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	available := commandAvailable(gpgCommand, gpgProbeArg)
	c.mu.Lock()
	c.gpgAvailable = &available
	c.mu.Unlock()
	return available
}

func (c *Cache) probeSSHPass() bool {
	c.mu.Lock()
	if c.sshpassAvailable != nil {
		v := *c.sshpassAvailable
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	available := commandAvailable(sshpassCommand, sshpassProbeArg)
	c.mu.Lock()
	c.sshpassAvailable = &available
	c.mu.Unlock()
	return available
}

// ValidKeyName reports whether s is a well-formed pass key name:
// non-empty and restricted to [A-Za-z0-9._-].
func ValidKeyName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// KeyPath returns the fixed location of a pass key's ciphertext,
// $HOME/.color-ssh/keys/<passKey>.gpg.
func KeyPath(passKey string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".color-ssh", "keys", passKey+".gpg"), nil
}

// ExtractPassword returns the first non-empty line of plaintext, with a
// trailing \r trimmed, or "" if the plaintext has no content.
func ExtractPassword(plaintext []byte) string {
	for _, line := range strings.Split(string(plaintext), "\n") {
		if line = strings.TrimSuffix(line, "\r"); line != "" {
			return line
		}
	}
	return ""
}

func decryptWithRetry(path string) (password string, reason FallbackReason, ok bool) {
	for attempt := 1; attempt <= maxDecryptAttempts; attempt++ {
		out, err := exec.Command(gpgCommand, "--quiet", "--decrypt", path).Output()
		if err != nil {
			var execErr *exec.Error
			if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
				return "", MissingGPG, false
			}
			continue // retryable: bad passphrase prompt, transient agent error, etc.
		}
		if pw := ExtractPassword(out); pw != "" {
			return pw, 0, true
		}
	}
	return "", DecryptFailedAfterRetries, false
}

func commandAvailable(command, probeArg string) bool {
	cmd := exec.Command(command, probeArg)
	cmd.Stdin = nil
	var discard bytes.Buffer
	cmd.Stdout = &discard
	cmd.Stderr = &discard
	return cmd.Run() == nil
}

// BuildSSHPassArgs returns the argv prefix that runs target under sshpass
// with the password supplied via the SSHPASS environment variable (-e),
// per spec.md's "never pass the password as an argv token" requirement.
func BuildSSHPassArgs(target string, args ...string) []string {
	out := append([]string{sshpassCommand, "-e", target}, args...)
	return out
}

// Env returns the environment additions needed to drive sshpass -e:
// SSHPASS set to password, on top of the caller's existing environment.
func Env(base []string, password string) []string {
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, "SSHPASS=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, fmt.Sprintf("SSHPASS=%s", password))
}

// EncryptAndStore symmetrically GPG-encrypts plaintext and writes it to
// passKey's fixed ciphertext location, for the CLI's --add-pass mode.
// gpg prompts for the encryption passphrase itself via pinentry on the
// inherited terminal; it is never passed on argv or read by this
// process.
func EncryptAndStore(passKey string, plaintext []byte) error {
	if !ValidKeyName(passKey) {
		return fmt.Errorf("pass: invalid key name %q", passKey)
	}
	path, err := KeyPath(passKey)
	if err != nil {
		return fmt.Errorf("pass: resolve key path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("pass: create keys dir: %w", err)
	}

	cmd := exec.Command(gpgCommand, "--quiet", "--yes",
		"--cipher-algo", "AES256", "--symmetric", "--output", path)
	cmd.Stdin = bytes.NewReader(plaintext)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pass: gpg encrypt: %w", err)
	}
	return os.Chmod(path, 0o600)
}
