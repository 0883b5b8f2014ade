package elektron

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/rickgao/elektron/internal/news"
	"github.com/rickgao/elektron/internal/session"
	"github.com/rickgao/elektron/internal/stream"
	"github.com/rickgao/elektron/internal/transport"
	"github.com/rickgao/elektron/internal/wire"
)

var (
	// ErrNilHandler is returned when a nil handler is registered.
	ErrNilHandler = errors.New("elektron: nil handler")

	// ErrNoItems is returned by a request with an empty item list.
	ErrNoItems = errors.New("elektron: no items requested")
)

// StatusHandler receives connection and stream status events.
type StatusHandler func(code StatusCode, payload json.RawMessage)

// DataHandler receives one raw item message: the refresh or update exactly
// as the feed sent it.
type DataHandler func(message json.RawMessage)

// NewsHandler receives one reassembled news story as its decompressed JSON
// document, along with the item it was published under.
type NewsHandler func(item string, story json.RawMessage)

// RequestOptions tune one data request.
type RequestOptions struct {
	// Service the items live on. Empty uses the provider's default
	// service.
	Service string

	// Domain of the request. Empty means MarketPrice.
	Domain string

	// Streaming false asks for a one-shot snapshot; the stream closes
	// itself after its refresh. Nil leaves the flag off the wire, which
	// the feed treats as streaming.
	Streaming *bool

	// View limits refreshes and updates to the named fields.
	View []string

	// Handler receives these items' traffic instead of the consumer-wide
	// market data handler.
	Handler DataHandler
}

// Consumer is a stateful client for one feed connection. All methods are
// safe for concurrent use, and handlers are invoked one at a time from the
// connection's read goroutine.
type Consumer struct {
	cfg    config
	logger *slog.Logger

	reg  *stream.Registry
	asm  *news.Assembler
	adpt *news.Adapter
	sess *session.Session

	obsMu    sync.RWMutex
	onStatus StatusHandler
	onData   DataHandler
	onNews   NewsHandler
}

// New builds a disconnected consumer. Handlers may be registered at any
// time, including after streams are open; traffic arriving with no handler
// in place is dropped.
func New(opts ...Option) *Consumer {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Consumer{
		cfg:    cfg,
		logger: logger,
		reg:    stream.NewRegistry(),
		asm:    news.NewAssembler(),
	}
	c.adpt = news.NewAdapter(c.asm, c.deliverStory, c.reportFailure, logger)

	dial := cfg.dialer
	if dial == nil {
		dial = func(h transport.Handler) transport.Transport {
			return transport.NewConn(cfg.transport, h, logger)
		}
	}
	c.sess = session.New(session.Config{ClearOnDisconnect: cfg.clearOnDisconnect}, c.reg, dial, logger)
	c.sess.SetNotify(c.notifyStatus)
	c.sess.SetResetHook(c.asm.Reset)
	return c
}

// OnStatus registers the handler for status events.
func (c *Consumer) OnStatus(fn StatusHandler) error {
	if fn == nil {
		return ErrNilHandler
	}
	c.obsMu.Lock()
	c.onStatus = fn
	c.obsMu.Unlock()
	return nil
}

// OnMarketData registers the consumer-wide handler for item traffic that
// was requested without a per-request handler.
func (c *Consumer) OnMarketData(fn DataHandler) error {
	if fn == nil {
		return ErrNilHandler
	}
	c.obsMu.Lock()
	c.onData = fn
	c.obsMu.Unlock()
	return nil
}

// OnNews registers the handler for reassembled news stories.
func (c *Consumer) OnNews(fn NewsHandler) error {
	if fn == nil {
		return ErrNilHandler
	}
	c.obsMu.Lock()
	c.onNews = fn
	c.obsMu.Unlock()
	return nil
}

// Connect dials the feed and logs in as user. It returns once the
// WebSocket is up; watch for a loginResponse status to learn whether the
// feed accepted the login. The context bounds only the dial.
func (c *Consumer) Connect(ctx context.Context, addr, user string) error {
	return c.sess.Connect(ctx, addr, session.LoginParams{
		User:          user,
		ApplicationID: c.cfg.applicationID,
		Position:      c.cfg.position,
	})
}

// Close drops the connection, if any. Stream registrations follow the
// consumer's clear-on-disconnect setting, exactly as for a connection lost
// to the network.
func (c *Consumer) Close() error {
	err := c.sess.Close()
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// RequestData opens a stream per item and sends one request for all of
// them. It returns the first allocated stream id. Until login has been
// accepted requests are refused with ErrNotLoggedIn. Re-requesting an open
// item supersedes its old stream locally; the feed side of the old stream
// is untouched, matching the provider's own handling of id reuse.
//
// On a send failure the ids remain allocated; the caller can close them
// or simply request again.
func (c *Consumer) RequestData(names []string, opts RequestOptions) (int64, error) {
	return c.request(names, opts, nil)
}

// RequestNews opens the news analytics stream for item (MRN_STORY when
// empty) on the given service. Stories flow to the OnNews handler once
// their fragments are reassembled and inflated.
func (c *Consumer) RequestNews(item, service string) (int64, error) {
	if item == "" {
		item = news.DefaultItem
	}
	opts := RequestOptions{Service: service, Domain: wire.DomainNewsTextAnalytics}
	return c.request([]string{item}, opts, c.adpt.Handle)
}

func (c *Consumer) request(names []string, opts RequestOptions, cb stream.Callback) (int64, error) {
	if len(names) == 0 {
		return NoStream, ErrNoItems
	}
	if !c.sess.LoggedIn() {
		return NoStream, ErrNotLoggedIn
	}

	domain := opts.Domain
	if domain == "" {
		domain = wire.DomainMarketPrice
	}
	if cb == nil {
		if h := opts.Handler; h != nil {
			cb = func(msg wire.Message, raw json.RawMessage) { h(raw) }
		} else {
			cb = c.deliverData
		}
	}

	ids := c.reg.Allocate(names, domain, cb)
	req := wire.ItemRequest{
		ID:        wire.IDList(ids),
		Domain:    domain,
		Key:       wire.RequestKey{Name: wire.NameList(names), Service: opts.Service},
		Streaming: opts.Streaming,
		View:      opts.View,
	}
	if err := c.sess.Send(req); err != nil {
		return ids[0], err
	}
	c.logger.Debug("requested items", "ids", ids, "domain", domain)
	return ids[0], nil
}

// CloseRequest releases the streams open for the named items (domain empty
// means MarketPrice) and sends the provider one close for all of them. The
// local entries are removed no matter what; items with no open stream still
// contribute NoStream to the outbound ids, which the provider ignores like
// any other unknown id.
func (c *Consumer) CloseRequest(names []string, domain string) error {
	if len(names) == 0 {
		return ErrNoItems
	}
	if domain == "" {
		domain = wire.DomainMarketPrice
	}
	ids := make([]int64, len(names))
	for i, name := range names {
		ids[i] = c.reg.Release(name, domain)
	}
	return c.sess.Send(wire.NewCloseRequest(ids...))
}

// CloseAllRequests releases every open stream and closes them in a single
// request. With nothing open it sends nothing.
func (c *Consumer) CloseAllRequests() error {
	ids := c.reg.OpenIDs()
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	c.reg.Clear()
	return c.sess.Send(wire.NewCloseRequest(ids...))
}

// LoggedIn reports whether the feed has accepted the login on the current
// connection.
func (c *Consumer) LoggedIn() bool {
	return c.sess.LoggedIn()
}

// State returns the connection lifecycle position.
func (c *Consumer) State() State {
	return c.sess.State()
}

// OpenStreams returns the number of live item streams.
func (c *Consumer) OpenStreams() int {
	return c.reg.Len()
}

// Stats is a point-in-time snapshot of consumer activity.
type Stats struct {
	Router         session.RouterStats
	OpenStreams    int
	PendingStories int
	State          State
	LoggedIn       bool
}

// Stats snapshots routing counters and table sizes.
func (c *Consumer) Stats() Stats {
	return Stats{
		Router:         c.sess.Stats(),
		OpenStreams:    c.reg.Len(),
		PendingStories: c.asm.Pending(),
		State:          c.sess.State(),
		LoggedIn:       c.sess.LoggedIn(),
	}
}

// deliverData is the default callback for items requested without their
// own handler. It reads the current market data handler on every message,
// so registering one late catches the stream mid-flight.
func (c *Consumer) deliverData(msg wire.Message, raw json.RawMessage) {
	c.obsMu.RLock()
	fn := c.onData
	c.obsMu.RUnlock()
	if fn != nil {
		fn(raw)
	}
}

func (c *Consumer) deliverStory(item string, story json.RawMessage) {
	c.obsMu.RLock()
	fn := c.onNews
	c.obsMu.RUnlock()
	if fn != nil {
		fn(item, story)
	}
}

func (c *Consumer) reportFailure(desc string) {
	payload, err := json.Marshal(desc)
	if err != nil {
		payload = json.RawMessage(`"unprintable error"`)
	}
	c.notifyStatus(StatusProcessingError, payload)
}

func (c *Consumer) notifyStatus(code StatusCode, payload json.RawMessage) {
	c.obsMu.RLock()
	fn := c.onStatus
	c.obsMu.RUnlock()
	if fn != nil {
		fn(code, payload)
	}
}
