package diffview

import (
	"strings"
	"testing"
)

func TestIsText(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, true},
		{"plain config", []byte("[user]\n\tname = A\n"), true},
		{"utf8", []byte("pässwörd\n"), true},
		{"null byte", []byte("abc\x00def"), false},
		{"invalid utf8", []byte{0xff, 0xfe, 0x41}, false},
		{"mostly control chars", []byte{1, 2, 3, 4, 'a'}, false},
		{"tabs and newlines ok", []byte("a\tb\r\nc"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsText(tt.data); got != tt.want {
				t.Errorf("IsText(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestUnifiedIdentical(t *testing.T) {
	if d := Unified("Git-Config", []byte("same\n"), []byte("same\n")); d != "" {
		t.Errorf("identical content produced a diff:\n%s", d)
	}
}

func TestUnifiedBinary(t *testing.T) {
	d := Unified("Blob", []byte{0, 1, 2}, []byte("text"))
	if !strings.Contains(d, "Binary item Blob differs") {
		t.Errorf("binary diff = %q", d)
	}
	// Raw bytes must never leak into the output.
	if strings.ContainsRune(d, 0) {
		t.Error("binary diff dumped raw content")
	}
}

func TestUnifiedText(t *testing.T) {
	vault := "name = A\nemail = a@example.com\n"
	local := "name = B\nemail = a@example.com\n"

	d := Unified("Git-Config", []byte(vault), []byte(local))
	if d == "" {
		t.Fatal("differing content produced no diff")
	}
	if !strings.HasPrefix(d, "--- vault/Git-Config\n+++ local/Git-Config\n") {
		t.Errorf("missing headers:\n%s", d)
	}
	if !strings.Contains(d, "name") {
		t.Errorf("diff does not mention the changed line:\n%s", d)
	}
}
