package news

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// DefaultItem is the news item requested when the caller does not name one.
// It carries the full real-time story feed.
const DefaultItem = "MRN_STORY"

// DecodeFragment decodes the base64 payload of an envelope's FRAGMENT
// field into raw compressed bytes.
func DecodeFragment(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("news: decode fragment: %w", err)
	}
	return data, nil
}

// DecodeStory inflates a complete compressed story and returns its JSON
// document. The document is validated but not interpreted; field layout is
// the application's concern.
func DecodeStory(compressed []byte) (json.RawMessage, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("news: inflate story: %w", err)
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("news: inflate story: %w", err)
	}

	var story json.RawMessage
	if err := json.Unmarshal(plain, &story); err != nil {
		return nil, fmt.Errorf("news: parse story: %w", err)
	}
	return story, nil
}
