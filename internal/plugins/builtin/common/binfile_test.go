package common

import "testing"

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"pe", append([]byte("MZ"), make([]byte, 10)...), FormatPE},
		{"elf", []byte("\x7fELF\x02\x01\x01"), FormatELF},
		{"macho", []byte("\xfe\xed\xfa\xce\x00\x00"), FormatMachO},
		{"unknown", []byte("not a binary"), FormatUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectFormat(c.data); got != c.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestEntropy_Empty(t *testing.T) {
	if got := Entropy(nil); got != 0 {
		t.Errorf("Entropy(nil) = %v, want 0", got)
	}
}

func TestEntropy_Uniform(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	got := Entropy(data)
	if got < 7.9 || got > 8.0 {
		t.Errorf("Entropy(uniform 256 bytes) = %v, want ~8.0", got)
	}
}

func TestEntropy_SingleByteIsZero(t *testing.T) {
	data := make([]byte, 100)
	if got := Entropy(data); got != 0 {
		t.Errorf("Entropy(all zero bytes) = %v, want 0", got)
	}
}

func TestExtractStrings_MinLength(t *testing.T) {
	data := []byte("\x00\x00abcdefgh\x00\x00ab\x00\x00longenoughstring\x00")
	got := ExtractStrings(data, 6, 100)
	if len(got) != 2 {
		t.Fatalf("ExtractStrings() = %v, want 2 matches", got)
	}
	if got[0] != "abcdefgh" || got[1] != "longenoughstring" {
		t.Errorf("ExtractStrings() = %v", got)
	}
}

func TestExtractStrings_MaxCap(t *testing.T) {
	data := []byte("aaaaaa\x00bbbbbb\x00cccccc\x00")
	got := ExtractStrings(data, 6, 2)
	if len(got) != 2 {
		t.Fatalf("ExtractStrings() capped at 2, got %d", len(got))
	}
}
