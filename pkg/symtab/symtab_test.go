package symtab

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeclareAssignsSequentialAddresses(t *testing.T) {
	tab := New()
	for _, name := range []string{"a", "b", "c"} {
		if err := tab.Declare(name); err != nil {
			t.Fatalf("Declare(%q): %v", name, err)
		}
	}
	for i := 0; i < 4; i++ {
		if err := tab.Use("a"); err != nil {
			t.Fatalf("Use: %v", err)
		}
	}

	want := []Entry{
		{Lexeme: "a", Address: 7000, Uses: 4},
		{Lexeme: "b", Address: 7001},
		{Lexeme: "c", Address: 7002},
	}
	if diff := cmp.Diff(want, tab.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if addr, ok := tab.AddressOf("c"); !ok || addr != 7002 {
		t.Errorf("AddressOf(c) = %d, %v", addr, ok)
	}
	if _, ok := tab.AddressOf("zz"); ok {
		t.Errorf("AddressOf(zz) reported a hit")
	}
	if diff := cmp.Diff([]Entry{{Lexeme: "b", Address: 7001}, {Lexeme: "c", Address: 7002}}, tab.Unused()); diff != "" {
		t.Errorf("Unused mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	tab := New()
	if err := tab.Declare("x"); err != nil {
		t.Fatal(err)
	}

	err := tab.Declare("x")
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Errorf("redeclare: got %v, want ErrDuplicateIdentifier", err)
	}
	if err == nil || !strings.Contains(err.Error(), "x") {
		t.Errorf("error should name the identifier: %v", err)
	}
	if err := tab.Use("y"); !errors.Is(err, ErrUndeclaredIdentifier) {
		t.Errorf("use: got %v, want ErrUndeclaredIdentifier", err)
	}
	if tab.Len() != 1 {
		t.Errorf("failed declare changed the table: Len = %d", tab.Len())
	}
	if err := tab.Declare("z"); err != nil {
		t.Fatal(err)
	}
	if addr, _ := tab.AddressOf("z"); addr != 7001 {
		t.Errorf("address after failed declare: got %d, want 7001", addr)
	}
}

func TestEntriesAreCopies(t *testing.T) {
	tab := New()
	_ = tab.Declare("a")
	entries := tab.Entries()
	entries[0].Address = 1
	if addr, _ := tab.AddressOf("a"); addr != BaseAddress {
		t.Errorf("table changed through Entries: %d", addr)
	}
}

func TestWriteListing(t *testing.T) {
	tab := New()
	_ = tab.Declare("i")
	_ = tab.Declare("max")
	var sb strings.Builder
	if err := tab.WriteListing(&sb); err != nil {
		t.Fatal(err)
	}
	want := "Identifier: i, Memory Address: 7000\nIdentifier: max, Memory Address: 7001\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}
