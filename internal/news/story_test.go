package news

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"testing"
)

// deflate compresses plain the way the feed compresses story bodies.
func deflate(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeFragment(t *testing.T) {
	raw := []byte{0x78, 0x9c, 0x01, 0xff}
	encoded := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeFragment(encoded)
	if err != nil {
		t.Fatalf("DecodeFragment returned error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("DecodeFragment = %x, want %x", got, raw)
	}
}

func TestDecodeFragmentInvalid(t *testing.T) {
	if _, err := DecodeFragment("not base64!!!"); err == nil {
		t.Error("DecodeFragment accepted invalid base64")
	}
}

func TestDecodeStory(t *testing.T) {
	body := []byte(`{"altId":"nNRA123","headline":"Quarterly results beat estimates","body":"..."}`)

	story, err := DecodeStory(deflate(t, body))
	if err != nil {
		t.Fatalf("DecodeStory returned error: %v", err)
	}

	var doc struct {
		AltID    string `json:"altId"`
		Headline string `json:"headline"`
	}
	if err := json.Unmarshal(story, &doc); err != nil {
		t.Fatalf("story did not parse: %v", err)
	}
	if doc.AltID != "nNRA123" {
		t.Errorf("altId = %q, want nNRA123", doc.AltID)
	}
	if doc.Headline != "Quarterly results beat estimates" {
		t.Errorf("headline = %q", doc.Headline)
	}
}

func TestDecodeStoryBadCompression(t *testing.T) {
	if _, err := DecodeStory([]byte("this is not zlib data")); err == nil {
		t.Error("DecodeStory accepted non-zlib input")
	}
}

func TestDecodeStoryTruncated(t *testing.T) {
	full := deflate(t, []byte(`{"headline":"cut short"}`))
	if _, err := DecodeStory(full[:len(full)/2]); err == nil {
		t.Error("DecodeStory accepted a truncated stream")
	}
}

func TestDecodeStoryNotJSON(t *testing.T) {
	if _, err := DecodeStory(deflate(t, []byte("plain text, not json"))); err == nil {
		t.Error("DecodeStory accepted a non-JSON story body")
	}
}
