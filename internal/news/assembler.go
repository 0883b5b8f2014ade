package news

import (
	"errors"
	"sync"
)

// ErrOrphanFragment reports a continuation fragment for a story with no
// buffer in flight, which happens when the first fragment was missed or the
// story was already discarded.
var ErrOrphanFragment = errors.New("news: fragment continues an unknown story")

type pendingStory struct {
	data  []byte
	total int
}

// Assembler accumulates story fragments until a story is complete. A buffer
// exists exactly as long as a story is partially received; completion,
// restart, and discard all remove it. Buffers are never aged out on their
// own, matching the feed's guarantee that fragments of one story arrive
// back to back per item.
type Assembler struct {
	mu      sync.Mutex
	pending map[string]*pendingStory
}

// NewAssembler returns an assembler with no stories in flight.
func NewAssembler() *Assembler {
	return &Assembler{pending: make(map[string]*pendingStory)}
}

// Ingest adds one decoded fragment to the story identified by key. first
// starts a new buffer, silently replacing any partial story under the same
// key; total is the expected byte size of the complete compressed story.
// When the accumulated bytes reach total, the finished story is returned
// with done true and the buffer is released. A continuation for an unknown
// key returns ErrOrphanFragment and buffers nothing.
func (a *Assembler) Ingest(key string, fragment []byte, first bool, total int) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var story *pendingStory
	if first {
		story = &pendingStory{data: append([]byte(nil), fragment...), total: total}
		a.pending[key] = story
	} else {
		var open bool
		story, open = a.pending[key]
		if !open {
			return nil, false, ErrOrphanFragment
		}
		story.data = append(story.data, fragment...)
	}

	if len(story.data) < story.total {
		return nil, false, nil
	}
	delete(a.pending, key)
	return story.data, true, nil
}

// Discard drops the partial story for key, reporting whether one existed.
func (a *Assembler) Discard(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, open := a.pending[key]; !open {
		return false
	}
	delete(a.pending, key)
	return true
}

// Pending returns the number of partially received stories.
func (a *Assembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Reset drops every partial story.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = make(map[string]*pendingStory)
}
