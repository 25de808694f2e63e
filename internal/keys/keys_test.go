package keys

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		key     string
		name    string
		literal bool
		bytes   string
	}{
		{"a", "a", true, "a"},
		{";", ";", true, ";"},
		{"é", "é", true, "é"},
		{"Enter", "Enter", false, "\r"},
		{"enter", "Enter", false, "\r"},
		{"Space", "Space", false, " "},
		{"Escape", "Escape", false, "\x1b"},
		{"BSpace", "BSpace", false, "\x7f"},
		{"PageUp", "PPage", false, "\x1b[5~"},
		{"Delete", "DC", false, "\x1b[3~"},
		{"F5", "F5", false, "\x1b[15~"},
		{"C-x", "C-x", false, "\x18"},
		{"C-c", "C-c", false, "\x03"},
		{"C-X", "C-x", false, "\x18"},
		{"C-[", "C-[", false, "\x1b"},
		{"M-x", "M-x", false, "\x1bx"},
		{"M-Enter", "M-Enter", false, "\x1b\r"},
	}
	for _, tc := range cases {
		k, err := Parse(tc.key)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.key, err)
		}
		if k.Name != tc.name || k.Literal != tc.literal || string(k.Bytes) != tc.bytes {
			t.Fatalf("%q: got name=%q literal=%v bytes=%q", tc.key, k.Name, k.Literal, k.Bytes)
		}
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, key := range []string{"", "Hyper", "C-", "C-ab", "M-Bogus"} {
		if _, err := Parse(key); !errors.Is(err, ErrUnknownKey) {
			t.Fatalf("%q: expected ErrUnknownKey, got %v", key, err)
		}
	}
}

func TestEncodeSequence(t *testing.T) {
	out, err := Encode([]string{"T", "e", "s", "t", "Space", "1", "Enter"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "Test 1\r" {
		t.Fatalf("unexpected encoding %q", out)
	}
}

func TestValidateReportsIndex(t *testing.T) {
	err := Validate([]string{"C-x", "n", "Nope"})
	if err == nil || !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if got := err.Error(); got[:7] != "keys[2]" {
		t.Fatalf("expected index prefix, got %q", got)
	}
}
