package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunHelpAndVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"av1level", "--help"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("--help exit = %d, want %d", code, exitOK)
	}
	if !strings.Contains(stdout.String(), "Forced-Level") {
		t.Fatalf("help output missing options:\n%s", stdout.String())
	}

	stdout.Reset()
	if code := Run([]string{"av1level", "--version"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("--version exit = %d, want %d", code, exitOK)
	}
	if !strings.Contains(stdout.String(), "go-av1level") {
		t.Fatalf("version output = %q", stdout.String())
	}
}

func TestRunNoFiles(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"av1level"}, &stdout, &stderr); code != exitError {
		t.Fatalf("no files exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stdout.String(), "Usage") {
		t.Fatalf("usage output = %q", stdout.String())
	}
}

func TestRunTooManyFiles(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"av1level", "a.ivf", "b.ivf"}, &stdout, &stderr); code != exitError {
		t.Fatalf("two files exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "exactly one") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunOutputInplaceConflict(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"av1level", "--output=out.ivf", "--inplace", "in.ivf"}
	if code := Run(args, &stdout, &stderr); code != exitError {
		t.Fatalf("conflicting flags exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "mutually exclusive") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunUnknownOption(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"av1level", "--frobnicate", "in.ivf"}, &stdout, &stderr); code != exitError {
		t.Fatalf("unknown option exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "unknown option") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunInvalidForcedLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := []string{"av1level", "--forced-level=2", "in.ivf"}
	if code := Run(args, &stdout, &stderr); code != exitError {
		t.Fatalf("reserved forced level exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "not a defined level index") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunShortForcedLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"av1level", "-f", "2", "in.ivf"}, &stdout, &stderr); code != exitError {
		t.Fatalf("-f 2 exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "not a defined level index") {
		t.Fatalf("stderr = %q", stderr.String())
	}

	stderr.Reset()
	if code := Run([]string{"av1level", "-f"}, &stdout, &stderr); code != exitError {
		t.Fatalf("bare -f exit = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "requires a level index") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestParseForcedLevel(t *testing.T) {
	for _, valid := range []string{"0", "8", "19", "31"} {
		if _, err := parseForcedLevel(valid); err != nil {
			t.Fatalf("parseForcedLevel(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "x", "-1", "2", "20", "32", "255"} {
		if _, err := parseForcedLevel(invalid); err == nil {
			t.Fatalf("parseForcedLevel(%q): expected an error", invalid)
		}
	}
}

func TestNormalizeArg(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"--Forced-Level=8", "--forced-level=8"},
		{"--InPlace", "--inplace"},
		{"--Output=Out.IVF", "--output=Out.IVF"},
		{"file.ivf", "file.ivf"},
	}
	for _, tc := range cases {
		if got := normalizeArg(tc.in); got != tc.want {
			t.Fatalf("normalizeArg(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
