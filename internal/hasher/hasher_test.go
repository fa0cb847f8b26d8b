package hasher

import (
	"bytes"
	"testing"
)

func TestContentHash_Deterministic(t *testing.T) {
	data := []byte("BLP2 texture payload")
	h1 := ContentHash(data, 16)
	h2 := ContentHash(data, 16)
	if h1 != h2 {
		t.Fatalf("hash differs: %s vs %s", h1, h2)
	}
	if len(h1) != 16 {
		t.Errorf("hash length: got %d, want 16", len(h1))
	}
}

func TestContentHash_Truncation(t *testing.T) {
	data := []byte{1, 2, 3}
	full := ContentHash(data, 0)
	if len(full) != 16 {
		t.Fatalf("full hash length: got %d", len(full))
	}
	if short := ContentHash(data, 8); short != full[:8] {
		t.Errorf("truncated hash %q is not a prefix of %q", short, full)
	}
}

func TestContentHashReader_MatchesBytes(t *testing.T) {
	data := bytes.Repeat([]byte("rgba"), 1024)
	got, err := ContentHashReader(bytes.NewReader(data), 16)
	if err != nil {
		t.Fatalf("reader hash: %v", err)
	}
	if want := ContentHash(data, 16); got != want {
		t.Errorf("reader hash %s != byte hash %s", got, want)
	}
}

func TestKey_PartsChangeKey(t *testing.T) {
	data := []byte("artifact")
	a := Key("analysis", data, int64(100))
	b := Key("analysis", data, int64(200))
	if a == b {
		t.Errorf("different parts produced the same key %s", a)
	}
	if a[:9] != "analysis:" {
		t.Errorf("key prefix: got %q", a)
	}
	if a != Key("analysis", data, int64(100)) {
		t.Error("key is not deterministic")
	}
}
