package news

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rickgao/elektron/internal/wire"
)

// envelope is the subset of news analytics fields the pipeline reads.
type envelope struct {
	Fragment string `json:"FRAGMENT"`
	FragNum  int    `json:"FRAG_NUM"`
	TotSize  int    `json:"TOT_SIZE"`
	Source   string `json:"MRN_SRC"`
	GUID     string `json:"GUID"`
}

// StoryFunc receives a finished story for the item it was published under.
type StoryFunc func(item string, story json.RawMessage)

// FailFunc receives a one-line description of a story that could not be
// decoded or delivered.
type FailFunc func(reason string)

// Adapter feeds raw news analytics messages through the assembler and
// reports finished stories. Every failure is contained here: a bad
// envelope, fragment, or story is reported through fail and the message
// dropped, without disturbing the rest of the frame it arrived in.
type Adapter struct {
	asm    *Assembler
	story  StoryFunc
	fail   FailFunc
	logger *slog.Logger
}

// NewAdapter wires an assembler to the application's story and failure
// sinks. Both funcs must be non-nil; pass sinks that discard if the
// application has no use for them.
func NewAdapter(asm *Assembler, story StoryFunc, fail FailFunc, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{asm: asm, story: story, fail: fail, logger: logger}
}

// Handle consumes one message from a news analytics stream. Only updates
// carry story fragments; refreshes and anything else on the stream are
// ignored. A panic out of the application's story sink is contained and
// reported like any other delivery failure.
func (a *Adapter) Handle(msg wire.Message, raw json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			a.fail(fmt.Sprintf("news handler panic: %v", r))
		}
	}()

	if msg.Type != wire.TypeUpdate || len(msg.Fields) == 0 {
		return
	}

	var env envelope
	if err := json.Unmarshal(msg.Fields, &env); err != nil {
		a.fail(fmt.Sprintf("news envelope: %v", err))
		return
	}
	if env.Fragment == "" {
		a.fail(fmt.Sprintf("news envelope: no fragment in update for guid %q", env.GUID))
		return
	}

	fragment, err := DecodeFragment(env.Fragment)
	if err != nil {
		a.fail(err.Error())
		return
	}

	var item string
	if msg.Key != nil {
		item = msg.Key.Name
	}
	key := storyKey(item, env.Source, env.GUID)

	data, done, err := a.asm.Ingest(key, fragment, env.FragNum <= 1, env.TotSize)
	if err != nil {
		a.fail(fmt.Sprintf("%v (guid %q, frag %d)", err, env.GUID, env.FragNum))
		return
	}
	if !done {
		a.logger.Debug("buffered story fragment",
			"guid", env.GUID,
			"frag", env.FragNum,
			"have", a.asm.Pending())
		return
	}

	story, err := DecodeStory(data)
	if err != nil {
		a.fail(fmt.Sprintf("%v (guid %q)", err, env.GUID))
		return
	}
	a.story(item, story)
}

// storyKey scopes reassembly to one story on one stream. Item, source, and
// GUID together are unique across concurrent stories.
func storyKey(item, source, guid string) string {
	return item + "|" + source + "|" + guid
}
