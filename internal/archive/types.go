package archive

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Config shapes a batch writer.
type Config struct {
	// BatchSize triggers a flush when the pending batch reaches it.
	BatchSize int

	// FlushInterval bounds how long a row can wait in memory.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of the writer's input buffer.
	BufferSize int
}

// DefaultConfig returns the writer defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     200,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// Metrics counts writer activity.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// Story is one reassembled news story ready for the archive.
type Story struct {
	Item       string
	ReceivedAt time.Time
	Body       json.RawMessage
}

// storyRow is the news_stories table shape.
type storyRow struct {
	ID         uuid.UUID
	Item       string
	GUID       string
	Headline   string
	ReceivedAt int64
	Body       []byte
}

// storyMeta is the subset of story fields the archive indexes.
type storyMeta struct {
	AltID    string `json:"altId"`
	Headline string `json:"headline"`
}

// Quote is one raw market data message ready for the archive.
type Quote struct {
	Item       string
	MsgType    string
	ReceivedAt time.Time
	Payload    json.RawMessage
}

// quoteRow is the quotes table shape.
type quoteRow struct {
	ID         uuid.UUID
	Item       string
	MsgType    string
	ReceivedAt int64
	Payload    []byte
}
