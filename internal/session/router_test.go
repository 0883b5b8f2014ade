package session

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rickgao/elektron/internal/stream"
	"github.com/rickgao/elektron/internal/wire"
)

type notice struct {
	code    StatusCode
	payload string
}

// routesRecorder captures router effects for inspection.
type routesRecorder struct {
	pongs   int
	pongErr error
	logins  []bool
	notices []notice
}

func (r *routesRecorder) SendPong() error {
	r.pongs++
	return r.pongErr
}

func (r *routesRecorder) LoginResponse(ok bool) {
	r.logins = append(r.logins, ok)
}

func (r *routesRecorder) Notify(code StatusCode, payload json.RawMessage) {
	r.notices = append(r.notices, notice{code: code, payload: string(payload)})
}

func (r *routesRecorder) codes() []StatusCode {
	out := make([]StatusCode, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.code
	}
	return out
}

func newTestRouter() (*Router, *stream.Registry, *routesRecorder) {
	reg := stream.NewRegistry()
	rec := &routesRecorder{}
	return NewRouter(reg, rec, nil), reg, rec
}

func TestRouterPing(t *testing.T) {
	router, _, rec := newTestRouter()

	router.ProcessFrame([]byte(`[{"Type":"Ping"}]`))

	if rec.pongs != 1 {
		t.Errorf("pongs = %d, want 1", rec.pongs)
	}
	if len(rec.notices) != 0 {
		t.Errorf("notices = %v, want none for a ping", rec.codes())
	}
}

func TestRouterPongFailureFaultsFrame(t *testing.T) {
	router, _, rec := newTestRouter()
	rec.pongErr = errors.New("socket shut")

	router.ProcessFrame([]byte(`[{"Type":"Ping"},{"Type":"Ping"}]`))

	if rec.pongs != 1 {
		t.Errorf("pongs = %d, want 1 (second ping aborted)", rec.pongs)
	}
	if got := rec.codes(); len(got) != 1 || got[0] != StatusProcessingError {
		t.Errorf("notices = %v, want one processingError", got)
	}
}

func TestRouterLoginAccepted(t *testing.T) {
	router, _, rec := newTestRouter()
	raw := `{"ID":0,"Type":"Refresh","Domain":"Login","State":{"Stream":"Open","Data":"Ok"}}`

	router.ProcessFrame([]byte(`[` + raw + `]`))

	if len(rec.logins) != 1 || !rec.logins[0] {
		t.Fatalf("logins = %v, want [true]", rec.logins)
	}
	if got := rec.codes(); len(got) != 1 || got[0] != StatusLoginResponse {
		t.Fatalf("notices = %v, want [loginResponse]", got)
	}
	if rec.notices[0].payload != raw {
		t.Errorf("payload = %s, want the raw login message", rec.notices[0].payload)
	}
}

func TestRouterLoginRejected(t *testing.T) {
	router, _, rec := newTestRouter()

	router.ProcessFrame([]byte(`[{"ID":0,"Type":"Status","Domain":"Login","State":{"Stream":"Closed","Data":"Suspect","Text":"denied"}}]`))

	// Login domain outranks the status type: this is a login response, not
	// an item status.
	if len(rec.logins) != 1 || rec.logins[0] {
		t.Fatalf("logins = %v, want [false]", rec.logins)
	}
	if got := rec.codes(); len(got) != 1 || got[0] != StatusLoginResponse {
		t.Errorf("notices = %v, want [loginResponse]", got)
	}
}

func TestRouterStatusClosedReleasesStream(t *testing.T) {
	router, reg, rec := newTestRouter()
	invoked := false
	id := reg.Allocate([]string{"GONE.N"}, wire.DomainMarketPrice, func(wire.Message, json.RawMessage) {
		invoked = true
	})

	frame := []byte(`[{"ID":` + itoa(id) + `,"Type":"Status","Key":{"Name":"GONE.N"},"State":{"Stream":"Closed","Data":"Suspect","Text":"not found"}}]`)
	router.ProcessFrame(frame)

	if _, live := reg.Resolve(id); live {
		t.Errorf("stream %d still live after closed status", id)
	}
	if invoked {
		t.Error("callback ran for a status message")
	}
	if got := rec.codes(); len(got) != 1 || got[0] != StatusMsgStatus {
		t.Errorf("notices = %v, want [msgStatus]", got)
	}
}

func TestRouterStatusOpenKeepsStream(t *testing.T) {
	router, reg, rec := newTestRouter()
	id := reg.Allocate([]string{"STALE.N"}, wire.DomainMarketPrice, nil)

	router.ProcessFrame([]byte(`[{"ID":` + itoa(id) + `,"Type":"Status","State":{"Stream":"Open","Data":"Suspect"}}]`))

	if _, live := reg.Resolve(id); !live {
		t.Errorf("stream %d released by a non-closed status", id)
	}
	if got := rec.codes(); len(got) != 1 || got[0] != StatusMsgStatus {
		t.Errorf("notices = %v, want [msgStatus]", got)
	}
}

func TestRouterErrorMessage(t *testing.T) {
	router, _, rec := newTestRouter()

	router.ProcessFrame([]byte(`[{"ID":3,"Type":"Error","Text":"JSON Unexpected Value"}]`))

	if got := rec.codes(); len(got) != 1 || got[0] != StatusMsgError {
		t.Errorf("notices = %v, want [msgError]", got)
	}
}

func TestRouterDataDispatch(t *testing.T) {
	router, reg, rec := newTestRouter()
	var gotMsg wire.Message
	var gotRaw string
	id := reg.Allocate([]string{"TRI.N"}, wire.DomainMarketPrice, func(msg wire.Message, raw json.RawMessage) {
		gotMsg = msg
		gotRaw = string(raw)
	})

	raw := `{"ID":` + itoa(id) + `,"Type":"Update","Fields":{"BID":41.12}}`
	router.ProcessFrame([]byte(`[` + raw + `]`))

	if gotMsg.ID != id {
		t.Errorf("callback msg ID = %d, want %d", gotMsg.ID, id)
	}
	if gotRaw != raw {
		t.Errorf("callback raw = %s, want %s", gotRaw, raw)
	}
	if len(rec.notices) != 0 {
		t.Errorf("notices = %v, want none for routine data", rec.codes())
	}
}

func TestRouterDataUnknownStream(t *testing.T) {
	router, _, rec := newTestRouter()

	router.ProcessFrame([]byte(`[{"ID":42,"Type":"Update","Fields":{"BID":1}}]`))

	if len(rec.notices) != 0 {
		t.Errorf("notices = %v, want silent drop", rec.codes())
	}
	if got := router.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestRouterSnapshotRefreshReleasesFirst(t *testing.T) {
	router, reg, _ := newTestRouter()
	var liveDuringCallback bool
	var id int64
	id = reg.Allocate([]string{"SNAP.N"}, wire.DomainMarketPrice, func(msg wire.Message, raw json.RawMessage) {
		_, liveDuringCallback = reg.Resolve(id)
	})

	router.ProcessFrame([]byte(`[{"ID":` + itoa(id) + `,"Type":"Refresh","State":{"Stream":"NonStreaming","Data":"Ok"},"Fields":{"BID":9.5}}]`))

	if liveDuringCallback {
		t.Error("stream still resolvable inside the final snapshot callback")
	}
	if _, live := reg.Resolve(id); live {
		t.Error("snapshot stream still live after delivery")
	}
}

func TestRouterStreamingRefreshKeepsStream(t *testing.T) {
	router, reg, _ := newTestRouter()
	calls := 0
	id := reg.Allocate([]string{"TRI.N"}, wire.DomainMarketPrice, func(wire.Message, json.RawMessage) {
		calls++
	})

	router.ProcessFrame([]byte(`[{"ID":` + itoa(id) + `,"Type":"Refresh","State":{"Stream":"Open","Data":"Ok"},"Fields":{}}]`))
	router.ProcessFrame([]byte(`[{"ID":` + itoa(id) + `,"Type":"Update","Fields":{}}]`))

	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
	if _, live := reg.Resolve(id); !live {
		t.Error("streaming refresh released the stream")
	}
}

func TestRouterFrameFaultBoundary(t *testing.T) {
	router, reg, rec := newTestRouter()
	var delivered []int64
	record := func(msg wire.Message, raw json.RawMessage) {
		delivered = append(delivered, msg.ID)
	}
	a := reg.Allocate([]string{"A.N"}, wire.DomainMarketPrice, record)
	b := reg.Allocate([]string{"B.N"}, wire.DomainMarketPrice, record)

	// The malformed second message aborts the third; the first is already
	// delivered.
	frame := `[{"ID":` + itoa(a) + `,"Type":"Update"},{"ID":"broken"},{"ID":` + itoa(b) + `,"Type":"Update"}]`
	router.ProcessFrame([]byte(frame))

	if len(delivered) != 1 || delivered[0] != a {
		t.Errorf("delivered = %v, want [%d]", delivered, a)
	}
	if got := rec.codes(); len(got) != 1 || got[0] != StatusProcessingError {
		t.Fatalf("notices = %v, want exactly one processingError", got)
	}
	if !strings.Contains(rec.notices[0].payload, "message 2 of 3") {
		t.Errorf("payload = %s, want position of the faulty message", rec.notices[0].payload)
	}

	// The next frame is a fresh fault domain.
	router.ProcessFrame([]byte(`[{"ID":` + itoa(b) + `,"Type":"Update"}]`))
	if len(delivered) != 2 || delivered[1] != b {
		t.Errorf("delivered after recovery = %v, want [%d %d]", delivered, a, b)
	}
}

func TestRouterCallbackPanicFaultsFrame(t *testing.T) {
	router, reg, rec := newTestRouter()
	calm := 0
	boom := reg.Allocate([]string{"BOOM.N"}, wire.DomainMarketPrice, func(wire.Message, json.RawMessage) {
		panic("application bug")
	})
	calmID := reg.Allocate([]string{"CALM.N"}, wire.DomainMarketPrice, func(wire.Message, json.RawMessage) {
		calm++
	})

	frame := `[{"ID":` + itoa(boom) + `,"Type":"Update"},{"ID":` + itoa(calmID) + `,"Type":"Update"}]`
	router.ProcessFrame([]byte(frame))

	if calm != 0 {
		t.Error("message after the panicking one was still dispatched")
	}
	if got := rec.codes(); len(got) != 1 || got[0] != StatusProcessingError {
		t.Fatalf("notices = %v, want one processingError", got)
	}
	if !strings.Contains(rec.notices[0].payload, "panic") {
		t.Errorf("payload = %s, want panic report", rec.notices[0].payload)
	}
}

func TestRouterUndecodableFrame(t *testing.T) {
	router, _, rec := newTestRouter()

	router.ProcessFrame([]byte(`not json at all`))

	if got := rec.codes(); len(got) != 1 || got[0] != StatusProcessingError {
		t.Errorf("notices = %v, want one processingError", got)
	}
}

func TestRouterStats(t *testing.T) {
	router, reg, _ := newTestRouter()
	id := reg.Allocate([]string{"TRI.N"}, wire.DomainMarketPrice, func(wire.Message, json.RawMessage) {})

	router.ProcessFrame([]byte(`[{"Type":"Ping"},{"ID":` + itoa(id) + `,"Type":"Update"}]`))
	router.ProcessFrame([]byte(`garbage`))

	stats := router.Stats()
	if stats.Frames != 2 {
		t.Errorf("Frames = %d, want 2", stats.Frames)
	}
	if stats.Pings != 1 {
		t.Errorf("Pings = %d, want 1", stats.Pings)
	}
	if stats.Data != 1 {
		t.Errorf("Data = %d, want 1", stats.Data)
	}
	if stats.Faults != 1 {
		t.Errorf("Faults = %d, want 1", stats.Faults)
	}
}

func itoa(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}
