package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Save(context.Background(), "import_catalog.xlsx", strings.NewReader("payload")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f, err := s.Open(context.Background(), "import_catalog.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestKeysAreFlattenedToBaseNames(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Save(context.Background(), "../../etc/escape.xlsx", strings.NewReader("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// The traversal components must have been stripped.
	if _, err := s.Open(context.Background(), "escape.xlsx"); err != nil {
		t.Fatalf("expected file under base dir, got %v", err)
	}
}

func TestOpenMissingKeyFails(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Open(context.Background(), "nope.xlsx"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
