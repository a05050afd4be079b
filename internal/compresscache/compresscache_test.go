package compresscache

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := []byte(`{"account_id":"acct-1","display_name":"Jane","followers":4200,"biography":"makes pottery"}`)

	compressed, err := Compress(original)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(compressed, original) {
		t.Fatal("expected compressed output to differ from input")
	}

	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, original) {
		t.Fatalf("round trip mismatch: got %q, want %q", decompressed, original)
	}
}

func TestCompressEmptyInput(t *testing.T) {
	compressed, err := Compress(nil)
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if len(decompressed) != 0 {
		t.Fatalf("expected empty round trip, got %q", decompressed)
	}
}

func TestDecompressRejectsGarbageInput(t *testing.T) {
	if _, err := Decompress([]byte("not a zstd frame")); err == nil {
		t.Fatal("expected an error decompressing non-zstd data")
	}
}

func TestCompressReducesSizeForRepetitiveData(t *testing.T) {
	original := []byte(strings.Repeat("creator profile bio text ", 200))
	compressed, err := Compress(original)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) >= len(original) {
		t.Fatalf("expected compression to shrink highly repetitive input: %d >= %d", len(compressed), len(original))
	}
}
