// Package engine wires every leaf component (codec, peer table,
// store, transport, dispatcher, PoW) into the single-threaded
// cooperative protocol engine described in spec §5. All mutable
// protocol state is owned by one goroutine — the actor loop in run()
// — which is the idiomatic Go rendering of "single-threaded
// cooperative scheduler": instead of cooperative yields inside one
// thread, a single goroutine multiplexes over channels with select,
// and the transport receive and PoW search goroutines talk to it only
// through channels. The bootstrap goroutine is the exception: it sends
// its HELLO and GET_PEERS through the transport directly, without
// touching the peer table, store or pending pings.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/config"
	engerrors "github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/errors"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/events"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/logging"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/peer"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/pow"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/store"
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/transport"
)

// BootstrapState is the per-node bootstrap state machine from spec §4.9.
type BootstrapState int

const (
	StateIdle BootstrapState = iota
	StateJoining
	StateJoined
	StateStandalone
)

func (s BootstrapState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateJoining:
		return "JOINING"
	case StateJoined:
		return "JOINED"
	case StateStandalone:
		return "STANDALONE"
	default:
		return "UNKNOWN"
	}
}

// Engine is one node's protocol engine instance. Nothing here is ever
// shared between engines in the same process (spec §9): logger, RNG,
// transport, and task set are all per-instance fields, never package
// globals.
type Engine struct {
	cfg       config.Config
	nodeID    string
	selfAddr  string
	log       *logging.Logger
	transport transport.Transport

	peers *peer.Table
	store *store.Store
	sink  *events.Sink

	pendingPings map[string]pendingPing // actor-loop-only, no mutex needed
	idCounter    uint64
	pingSeq      int64

	powProof  pow.Proof
	powReady  chan struct{}
	powFailed bool

	originateCh chan originateRequest
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once

	joinedCh   chan struct{}
	joinedOnce sync.Once

	bootstrapMu    sync.Mutex
	bootstrapState BootstrapState

	wg sync.WaitGroup

	helloBreaker *engerrors.CircuitBreaker

	disp        *dispatcherBinding
	cancelTasks context.CancelFunc
}

type pendingPing struct {
	addr     string
	sendTime time.Time
}

type originateRequest struct {
	msgID string
	topic string
	data  string
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithTransport overrides the transport the engine binds to; tests
// use this to plug in an in-memory transport.Network endpoint instead
// of a real UDP socket.
func WithTransport(t transport.Transport) Option {
	return func(e *Engine) { e.transport = t }
}

// WithLogger overrides the per-instance logger (defaults to a no-op
// sink if unset, so tests don't need to wire one).
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithEventBuffer overrides the event sink's buffer capacity.
func WithEventBuffer(n int) Option {
	return func(e *Engine) { e.sink = events.NewSink(n) }
}

// New constructs an Engine. If opts doesn't supply a transport, New
// binds a real UDP socket on cfg.Port (spec §6).
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nodeID, err := generateNodeID()
	if err != nil {
		return nil, fmt.Errorf("engine: generate node id: %w", err)
	}

	e := &Engine{
		cfg:          cfg,
		nodeID:       nodeID,
		selfAddr:     cfg.SelfAddr(),
		peers:        peer.New(cfg.PeerLimit, cfg.Seed),
		store:        store.New(store.Cap),
		sink:         events.NewSink(4096),
		pendingPings: make(map[string]pendingPing),
		powReady:     make(chan struct{}),
		originateCh:  make(chan originateRequest, 64),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		joinedCh:     make(chan struct{}),
		helloBreaker: engerrors.NewCircuitBreaker("bootstrap-hello", 5, 10*time.Second),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = logging.Noop()
	}

	if e.transport == nil {
		t, err := transport.Listen(cfg.Port, e.log)
		if err != nil {
			return nil, err
		}
		e.transport = t
		// selfAddr stays cfg.SelfAddr(): t.LocalAddr() would report
		// "0.0.0.0:<port>" since Listen binds every interface, and
		// peers can't dial that back.
	}

	e.disp = newDispatcherBinding(e)
	return e, nil
}

func generateNodeID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// nextMsgID derives a fresh, collision-resistant message id from this
// node's identity, a monotonic counter, and a random nonce, hashed
// with BLAKE2b (see SPEC_FULL.md §3 for why this replaces the
// original implementation's bare uuid4()).
func (e *Engine) nextMsgID() string {
	counter := atomic.AddUint64(&e.idCounter, 1)
	var nonce [8]byte
	_, _ = rand.Read(nonce[:])

	h, _ := blake2b.New(16, nil)
	h.Write([]byte(e.nodeID))
	var counterBuf [8]byte
	binary.BigEndian.PutUint64(counterBuf[:], counter)
	h.Write(counterBuf[:])
	h.Write(nonce[:])
	return hex.EncodeToString(h.Sum(nil))
}

func (e *Engine) nextPingID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// randomMsgID derives a fresh id the same way nextMsgID does but
// without touching idCounter, so it's safe to call from any goroutine
// (Originate uses this to hand the caller the id of the message it's
// about to enqueue, before the actor loop ever sees the request).
func (e *Engine) randomMsgID() string {
	var nonce [16]byte
	_, _ = rand.Read(nonce[:])
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(e.nodeID))
	h.Write(nonce[:])
	return hex.EncodeToString(h.Sum(nil))
}

func nowMs() int64 { return time.Now().UnixMilli() }

// NodeID returns this engine's 128-bit node identity as 32 hex chars.
func (e *Engine) NodeID() string { return e.nodeID }

// SelfAddr returns this engine's listening "ip:port".
func (e *Engine) SelfAddr() string { return e.selfAddr }

// Events returns the engine's event stream (spec §6).
func (e *Engine) Events() <-chan events.Event { return e.sink.Events() }

// BootstrapState returns the current bootstrap state machine value.
func (e *Engine) BootstrapState() BootstrapState {
	e.bootstrapMu.Lock()
	defer e.bootstrapMu.Unlock()
	return e.bootstrapState
}

func (e *Engine) setBootstrapState(s BootstrapState) {
	e.bootstrapMu.Lock()
	e.bootstrapState = s
	e.bootstrapMu.Unlock()
}

// PeerCount returns the number of tracked peers.
func (e *Engine) PeerCount() int { return e.peers.Size() }

// SeenCount / StoreCount expose the bounded-memory invariants for tests.
func (e *Engine) SeenCount() int  { return e.store.SeenSize() }
func (e *Engine) StoreCount() int { return e.store.StoreSize() }

// HasMessage reports whether id has reached this node.
func (e *Engine) HasMessage(id string) bool { return e.store.Seen(id) }

// Originate enqueues a new GOSSIP for origination on the engine's
// actor loop (spec §6) and returns the id it will carry. Safe to call
// from any goroutine.
func (e *Engine) Originate(topic, data string) string {
	id := e.randomMsgID()
	select {
	case e.originateCh <- originateRequest{msgID: id, topic: topic, data: data}:
	case <-e.stopCh:
	}
	return id
}

// Start binds the engine's background tasks — the actor loop, the PoW
// search (if enabled), and bootstrap (if configured) — and returns
// once they're running. It does not block.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancelTasks = cancel
	engerrors.SafeGo(nil, "task-watchdog", func() {
		select {
		case <-e.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	})

	if e.cfg.PowK > 0 {
		e.wg.Add(1)
		engerrors.SafeGo(nil, "pow", func() {
			defer e.wg.Done()
			e.runPoWSearch(runCtx)
		})
	} else {
		close(e.powReady)
	}

	e.wg.Add(1)
	engerrors.SafeGo(nil, "actor-loop", func() {
		defer e.wg.Done()
		e.run(runCtx)
	})

	if e.cfg.Bootstrap != "" {
		e.setBootstrapState(StateJoining)
		e.wg.Add(1)
		engerrors.SafeGo(nil, "bootstrap", func() {
			defer e.wg.Done()
			e.runBootstrap(runCtx)
		})
	} else {
		e.setBootstrapState(StateStandalone)
	}

	return nil
}

// Stop cancels the engine's task set and closes the transport. The peer
// table, message store, pending pings and event stream are left as they
// are; Stop does not clear or close them. Idempotent (spec §5), and safe
// to call on an engine that was never started. Cancelling runCtx (not
// just closing stopCh) matters for runPoWSearch: pow.Compute only
// watches ctx.Done(), so a caller-supplied ctx that outlives Stop would
// otherwise leave wg.Wait() blocked on an unfinished search.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		if e.cancelTasks != nil {
			e.cancelTasks()
		}
		_ = e.transport.Close()
		e.wg.Wait()
		close(e.doneCh)
	})
}

// Done returns a channel closed once Stop has fully completed.
func (e *Engine) Done() <-chan struct{} { return e.doneCh }
