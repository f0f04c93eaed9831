package pass

import (
	"strings"
	"testing"
)

func TestValidKeyName(t *testing.T) {
	cases := map[string]bool{
		"db-key":     true,
		"db_key.1":   true,
		"":           false,
		"not valid!": false,
		"rm -rf /":   false,
	}
	for input, want := range cases {
		if got := ValidKeyName(input); got != want {
			t.Errorf("ValidKeyName(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestResolve_EmptyKeyIsDisabled(t *testing.T) {
	c := NewCache()
	r := c.Resolve("")
	if !r.Disabled {
		t.Fatalf("expected Disabled for empty key, got %+v", r)
	}
}

func TestResolve_InvalidKeyNameFallsBack(t *testing.T) {
	c := NewCache()
	r := c.Resolve("not valid!")
	if !r.Failed || r.Fallback != InvalidPassKeyName {
		t.Fatalf("expected InvalidPassKeyName fallback, got %+v", r)
	}
}

func TestExtractPassword(t *testing.T) {
	cases := map[string]string{
		"hunter2\n":       "hunter2",
		"hunter2\r\n":     "hunter2",
		"hunter2":         "hunter2",
		"hunter2\njunk\n": "hunter2",
		"":                "",
		"\n":              "",
	}
	for input, want := range cases {
		if got := ExtractPassword([]byte(input)); got != want {
			t.Errorf("ExtractPassword(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestKeyPath(t *testing.T) {
	t.Setenv("HOME", "/home/test-user")
	path, err := KeyPath("db-key")
	if err != nil {
		t.Fatalf("KeyPath: %v", err)
	}
	if path != "/home/test-user/.color-ssh/keys/db-key.gpg" {
		t.Fatalf("unexpected key path: %s", path)
	}
}

func TestResolve_MissingSSHPassFallsBackWithoutShellingOut(t *testing.T) {
	c := NewCache()
	// Seed the availability cache directly rather than depending on the
	// test host's actual binary layout.
	unavailable := false
	c.sshpassAvailable = &unavailable
	r := c.Resolve("valid-key")
	if !r.Failed || r.Fallback != MissingSSHPass {
		t.Fatalf("expected MissingSSHPass fallback, got %+v", r)
	}
}

func TestResolve_CachesDecryptedPassword(t *testing.T) {
	c := NewCache()
	c.passwords["cached-key"] = "s3cret"
	r := c.Resolve("cached-key")
	if r.Password != "s3cret" {
		t.Fatalf("expected cached password, got %+v", r)
	}
}

func TestBuildSSHPassArgs(t *testing.T) {
	args := BuildSSHPassArgs("ssh", "-p", "22", "host")
	if strings.Join(args, " ") != "sshpass -e ssh -p 22 host" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestEnv_ReplacesExistingSSHPass(t *testing.T) {
	base := []string{"PATH=/bin", "SSHPASS=old", "HOME=/home/x"}
	out := Env(base, "new")
	found := 0
	for _, kv := range out {
		if kv == "SSHPASS=old" {
			t.Fatalf("stale SSHPASS leaked into env: %v", out)
		}
		if kv == "SSHPASS=new" {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("expected exactly one SSHPASS=new entry, got %d in %v", found, out)
	}
}
