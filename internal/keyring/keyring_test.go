package keyring

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetConnectionString(t *testing.T) {
	gokeyring.MockInit()

	testConnStr := "postgres://habitlog@localhost:5432/habitlog?sslmode=disable"
	if err := Default.SetConnectionString(testConnStr); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}

	retrieved, err := Default.ConnectionString()
	if err != nil {
		t.Fatalf("ConnectionString() failed: %v", err)
	}
	if retrieved != testConnStr {
		t.Errorf("ConnectionString() = %q, want %q", retrieved, testConnStr)
	}
}

func TestSetConnectionStringEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := Default.SetConnectionString(""); err == nil {
		t.Error("SetConnectionString(\"\") should return an error")
	}
}

func TestConnectionStringNotFound(t *testing.T) {
	gokeyring.MockInit()

	v := Vault{Service: "habitlog-test", Account: "nobody"}
	if _, err := v.ConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("ConnectionString() error = %v, want %v", err, ErrNotFound)
	}
	if err := v.DeleteConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteConnectionString() error = %v, want %v", err, ErrNotFound)
	}
}

func TestDeleteConnectionString(t *testing.T) {
	gokeyring.MockInit()

	if err := Default.SetConnectionString("postgres://habitlog@localhost/habitlog"); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}
	if err := Default.DeleteConnectionString(); err != nil {
		t.Fatalf("DeleteConnectionString() failed: %v", err)
	}
	if _, err := Default.ConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestVaultsAreIsolated(t *testing.T) {
	gokeyring.MockInit()

	a := Vault{Service: "habitlog", Account: "a"}
	b := Vault{Service: "habitlog", Account: "b"}
	if err := a.SetConnectionString("postgres://a@localhost/db"); err != nil {
		t.Fatalf("SetConnectionString() failed: %v", err)
	}
	if _, err := b.ConnectionString(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected vault b to be empty, got %v", err)
	}
}

func TestIsAvailableWithMock(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("expected mock keyring to be available")
	}
}
