package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitlog/internal/logger"
)

var (
	// ErrNotAuthenticated is returned when no user identity has been resolved
	ErrNotAuthenticated = errors.New("user not authenticated")
	// ErrNotAuthorized is returned when a record belongs to a different user
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound is returned when a habit or log does not exist or is not visible
	ErrNotFound = errors.New("not found")
	// ErrStorage wraps failures reported by the underlying store
	ErrStorage = errors.New("storage failure")
	// ErrConflict is returned when a log already exists for a habit and day
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is returned for malformed dates, months or field values
	ErrInvalidArgument = errors.New("invalid argument")
)

// Storage wraps a driver error so that callers can match it with ErrStorage
// while keeping the original error in the chain.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Hint returns a short suggestion for well-known error kinds, or "" if none applies
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "pass --user or set HABITLOG_USER"
	case errors.Is(err, ErrNotFound):
		return "run 'habitlog habit list' to see available habits"
	case errors.Is(err, ErrStorage):
		return "run 'habitlog doctor' to check the database"
	default:
		return ""
	}
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		if hint := Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}

// Invalid tags a validation failure with ErrInvalidArgument
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
}
