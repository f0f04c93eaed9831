package main

import (
	"errors"
	"os/exec"
	"reflect"
	"testing"
)

func TestParseOwnFlags_SplitsOwnFromSSHArgs(t *testing.T) {
	flags, rest := parseOwnFlags([]string{"-d", "-l", "-P", "work", "myhost", "-v"})
	if !flags.debug || !flags.logging {
		t.Fatalf("expected debug and logging set, got %+v", flags)
	}
	if flags.profile != "work" {
		t.Fatalf("expected profile %q, got %q", "work", flags.profile)
	}
	if !reflect.DeepEqual(rest, []string{"myhost", "-v"}) {
		t.Fatalf("unexpected passthrough args: %v", rest)
	}
}

func TestParseOwnFlags_AddPassConsumesItsValue(t *testing.T) {
	flags, rest := parseOwnFlags([]string{"--add-pass", "db-key"})
	if flags.addPass != "db-key" {
		t.Fatalf("expected addPass %q, got %q", "db-key", flags.addPass)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no leftover args, got %v", rest)
	}
}

func TestParseOwnFlags_TestModeFlagDoesNotConsumeSSHsOwnDashT(t *testing.T) {
	// -t here is color-ssh's own test-mode flag; a bare "-t" passed again
	// further along argv (e.g. meant for ssh's force-pty option nested in
	// its own arg list) should still pass through untouched.
	flags, rest := parseOwnFlags([]string{"-t", "host", "-t"})
	if !flags.testMode {
		t.Fatalf("expected testMode set")
	}
	if !reflect.DeepEqual(rest, []string{"host", "-t"}) {
		t.Fatalf("unexpected passthrough args: %v", rest)
	}
}

func TestClampExitCode(t *testing.T) {
	cases := map[int]int{
		0:   0,
		1:   1,
		255: 255,
		256: 1,
		-1:  1,
	}
	for in, want := range cases {
		if got := clampExitCode(in); got != want {
			t.Errorf("clampExitCode(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestExitCodeFromErr_NilIsZero(t *testing.T) {
	if got := exitCodeFromErr(nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestExitCodeFromErr_NonExitErrorIsOne(t *testing.T) {
	if got := exitCodeFromErr(errors.New("boom")); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestExitCodeFromErr_RealProcessExitStatus(t *testing.T) {
	err := exec.Command("sh", "-c", "exit 7").Run()
	if got := exitCodeFromErr(err); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestDestinationFromArgs_SkipsFlagValuesAndFindsHost(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"myhost"}, "myhost"},
		{[]string{"-p", "2222", "myhost"}, "myhost"},
		{[]string{"-l", "root", "-o", "StrictHostKeyChecking=no", "myhost"}, "myhost"},
		{[]string{"-G", "myhost"}, "myhost"},
		{[]string{"-p", "2222"}, ""},
	}
	for _, tc := range cases {
		if got := destinationFromArgs(tc.args); got != tc.want {
			t.Errorf("destinationFromArgs(%v) = %q, want %q", tc.args, got, tc.want)
		}
	}
}
