package object

import (
	"errors"
	"io"
	"strings"
	"testing"

	"docflow-backend/internal/shared/util"
)

func TestOwnerPrefix(t *testing.T) {
	id := "6f1c0f8e-0c55-4a5e-9f3e-1a2b3c4d5e6f"
	got := OwnerPrefix(id)
	if got != OwnerPrefix(id) {
		t.Fatalf("expected stable prefix, got %s", got)
	}
	if got == OwnerPrefix("another-owner") {
		t.Fatalf("expected distinct owners to get distinct prefixes")
	}
	if len(got) != 32 || strings.Trim(got, "0123456789abcdef") != "" {
		t.Fatalf("expected 32 lowercase hex characters, got %q", got)
	}
}

func TestNewKeyNamespacesByOwner(t *testing.T) {
	key, err := NewKey("owner-1", "Expense Report.pdf")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != OwnerPrefix("owner-1") {
		t.Fatalf("unexpected key layout %q", key)
	}
	if !strings.HasSuffix(key, "_Expense_Report.pdf") {
		t.Fatalf("expected sanitized suffix, got %q", key)
	}
	other, _ := NewKey("owner-1", "Expense Report.pdf")
	if other == key {
		t.Fatalf("expected unique keys")
	}
}

func TestNewKeyRejectsTraversal(t *testing.T) {
	if _, err := NewKey("owner-1", "../../secret"); !errors.Is(err, util.ErrInvalidFileName) {
		t.Fatalf("expected invalid file name error, got %v", err)
	}
}

func TestCountingReader(t *testing.T) {
	cr := &CountingReader{R: strings.NewReader("hello world")}
	if _, err := io.Copy(io.Discard, cr); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if cr.N != 11 {
		t.Fatalf("expected 11 bytes, got %d", cr.N)
	}
}
