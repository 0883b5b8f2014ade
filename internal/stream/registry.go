package stream

import (
	"encoding/json"
	"sync"

	"github.com/rickgao/elektron/internal/wire"
)

// NoStream is returned by Release when no stream is open for the item. It
// sits outside the valid id space, which is [1, wire.MaxStreamID] for items
// plus the reserved login id 0.
const NoStream int64 = -1

// Callback receives a dispatched message for a stream the registry resolved.
// msg is the decoded form, raw the exact bytes from the frame. A stream may
// be registered with a nil callback; its traffic is then dropped.
type Callback func(msg wire.Message, raw json.RawMessage)

type entry struct {
	key string
	cb  Callback
}

// Registry maps live stream ids to item keys and callbacks. All methods are
// safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	counter int64
	byID    map[int64]*entry
	byKey   map[string]int64
}

// NewRegistry returns an empty registry with the id counter at zero, so the
// first allocation hands out id 1.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[int64]*entry),
		byKey: make(map[string]int64),
	}
}

// itemKey builds the identity of a subscription. The same name on two
// domains is two distinct streams.
func itemKey(name, domain string) string {
	return name + "|" + domain
}

// Allocate assigns one id per name, binds each to cb, and returns the ids
// in request order. Ids are consecutive except across the counter wrap.
// Re-requesting an item that is already open supersedes the old stream:
// its id stops resolving the moment the new one is registered. Allocating
// zero names returns nil.
func (r *Registry) Allocate(names []string, domain string, cb Callback) []int64 {
	if len(names) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id := r.nextIDLocked()
		key := itemKey(name, domain)
		if old, open := r.byKey[key]; open {
			delete(r.byID, old)
		}
		r.byKey[key] = id
		r.byID[id] = &entry{key: key, cb: cb}
		ids = append(ids, id)
	}
	return ids
}

// nextIDLocked advances the counter, wrapping from wire.MaxStreamID back to
// 1. Id 0 is never produced.
func (r *Registry) nextIDLocked() int64 {
	if r.counter >= wire.MaxStreamID {
		r.counter = 0
	}
	r.counter++
	return r.counter
}

// Resolve returns the callback bound to id. The second return reports
// whether the stream is live; a live stream may still carry a nil callback.
func (r *Registry) Resolve(id int64) (Callback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, open := r.byID[id]
	if !open {
		return nil, false
	}
	return e.cb, true
}

// Release closes the stream for an item and returns its id, or NoStream if
// the item has no open stream.
func (r *Registry) Release(name, domain string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := itemKey(name, domain)
	id, open := r.byKey[key]
	if !open {
		return NoStream
	}
	delete(r.byKey, key)
	delete(r.byID, id)
	return id
}

// ReleaseID closes a stream by id and reports whether it was live. Used
// when the provider closes the stream from its side.
func (r *Registry) ReleaseID(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, open := r.byID[id]
	if !open {
		return false
	}
	delete(r.byID, id)
	delete(r.byKey, e.key)
	return true
}

// OpenIDs returns the ids of every live stream, in no particular order.
func (r *Registry) OpenIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Clear drops every live stream. The id counter keeps its position so a
// later allocation does not reissue ids from before the clear.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[int64]*entry)
	r.byKey = make(map[string]int64)
}
