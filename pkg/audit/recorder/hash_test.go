package recorder

import (
	"bytes"
	"testing"
)

func TestHashContent(t *testing.T) {
	if got := HashContent(nil); got != "" {
		t.Errorf("HashContent(nil) = %q, want empty", got)
	}
	if got := HashContent([]byte{}); got != "" {
		t.Errorf("HashContent(empty) = %q, want empty", got)
	}

	content := []byte(`{"medication":{"name":"Metformin 500mg"}}`)
	first := HashContent(content)
	if first == "" {
		t.Fatal("HashContent() returned empty for non-empty content")
	}
	if first != HashContent(content) {
		t.Error("HashContent() is not deterministic")
	}

	other := HashContent([]byte(`{"medication":{"name":"Lisinopril 10mg"}}`))
	if first == other {
		t.Error("HashContent() collided for different content")
	}
}

func TestHashContent_LargeContent(t *testing.T) {
	// Content beyond MaxHashSize hashes only the first MaxHashSize bytes
	large := bytes.Repeat([]byte("a"), MaxHashSize+100)

	if got, want := HashContent(large), HashContent(large[:MaxHashSize]); got != want {
		t.Errorf("HashContent(large) = %q, want prefix hash %q", got, want)
	}
}

func TestHashString(t *testing.T) {
	if HashString("metformin") != HashContent([]byte("metformin")) {
		t.Error("HashString() disagrees with HashContent()")
	}
	if HashString("metformin") != hashString("metformin") {
		t.Error("HashString() is not plain SHA-256")
	}
}
