package hasher

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	for _, s := range []string{"blake3", "xxh3"} {
		algo, err := Parse(s)
		if err != nil {
			t.Errorf("Parse(%q): %v", s, err)
		}
		if string(algo) != s {
			t.Errorf("Parse(%q) = %q", s, algo)
		}
	}
	if _, err := Parse("md5"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
	if _, err := Parse("BLAKE3"); err == nil {
		t.Error("algorithm names are case-sensitive")
	}
}

func TestFileDigestWidth(t *testing.T) {
	path := writeFile(t, "hello")

	cases := []struct {
		algo  Algorithm
		width int
	}{
		{Blake3, 64},
		{XXH3, 32},
	}
	for _, c := range cases {
		got, err := File(path, c.algo)
		if err != nil {
			t.Fatalf("File(%s): %v", c.algo, err)
		}
		if len(got) != c.width {
			t.Errorf("%s digest width = %d, want %d", c.algo, len(got), c.width)
		}
		for _, r := range got {
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
				t.Errorf("%s digest contains non-hex rune %q", c.algo, r)
				break
			}
		}
	}
}

func TestFileStableAndContentSensitive(t *testing.T) {
	for _, algo := range []Algorithm{Blake3, XXH3} {
		a := writeFile(t, "hello")
		b := writeFile(t, "hello")
		c := writeFile(t, "hello!")

		ha, err := File(a, algo)
		if err != nil {
			t.Fatalf("File: %v", err)
		}
		hb, _ := File(b, algo)
		hc, _ := File(c, algo)

		if ha != hb {
			t.Errorf("%s: equal content produced different digests", algo)
		}
		if ha == hc {
			t.Errorf("%s: different content produced equal digests", algo)
		}

		again, _ := File(a, algo)
		if ha != again {
			t.Errorf("%s: digest not stable across calls", algo)
		}
	}
}

func TestFileEmpty(t *testing.T) {
	path := writeFile(t, "")
	for _, algo := range []Algorithm{Blake3, XXH3} {
		if _, err := File(path, algo); err != nil {
			t.Errorf("File(%s) on empty file: %v", algo, err)
		}
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "nope"), Blake3); err == nil {
		t.Error("expected error for missing file")
	}
}
