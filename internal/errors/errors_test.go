package errors

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      errors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "sentinel error",
			err:      ErrNotAuthorized,
			expected: "Error: not authorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	result := Formatf("failed to load %s", "habit")
	if result != "Error: failed to load habit" {
		t.Errorf("Formatf() = %q, want %q", result, "Error: failed to load habit")
	}
}

func TestStorage(t *testing.T) {
	if Storage("get habit", nil) != nil {
		t.Error("Storage(nil) should return nil")
	}

	err := Storage("get habit", sql.ErrConnDone)
	if !errors.Is(err, ErrStorage) {
		t.Errorf("expected error to match ErrStorage, got %v", err)
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("expected error to keep the driver error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "get habit: ") {
		t.Errorf("expected operation prefix, got %q", err.Error())
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		empty bool
	}{
		{name: "not authenticated", err: ErrNotAuthenticated},
		{name: "wrapped not found", err: errors.Join(errors.New("habit abc"), ErrNotFound)},
		{name: "storage", err: Storage("put", errors.New("disk full"))},
		{name: "conflict has no hint", err: ErrConflict, empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := Hint(tt.err)
			if tt.empty && hint != "" {
				t.Errorf("Hint(%v) = %q, want empty", tt.err, hint)
			}
			if !tt.empty && hint == "" {
				t.Errorf("Hint(%v) is empty", tt.err)
			}
		})
	}
}

// TestFatal tests the Fatal function using exec helper process
func TestFatal(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL") == "1" {
		Fatal(ErrNotAuthenticated)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal$")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		if e.ExitCode() != 1 {
			t.Errorf("Fatal() exit code = %d, want 1", e.ExitCode())
		}
		stderrStr := stderr.String()
		if !strings.Contains(stderrStr, "Error: user not authenticated") {
			t.Errorf("Fatal() stderr = %q, want to contain %q", stderrStr, "Error: user not authenticated")
		}
		if !strings.Contains(stderrStr, "Hint: ") {
			t.Errorf("Fatal() stderr = %q, want a hint line", stderrStr)
		}
	} else {
		t.Errorf("Fatal() did not exit with error: %v", err)
	}
}

// TestFatal_NilError tests that Fatal does nothing when passed a nil error
func TestFatal_NilError(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL_NIL") == "1" {
		Fatal(nil)
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal_NilError")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL_NIL=1")

	if err := cmd.Run(); err != nil {
		t.Errorf("Fatal(nil) should not exit, but got error: %v", err)
	}
}
