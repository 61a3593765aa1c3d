package transport

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

type relayRequest struct {
	ID  uint64
	Ctx context.Context
	Req *Request
}

type relayResponse struct {
	ID   uint64
	Resp *Response
	Err  error
}

// RelayFetcher moves fetches off the caller onto a background worker. Requests and responses are
// exchanged as messages matched by a monotonically increasing id.
type RelayFetcher struct {
	inner Fetcher

	requests  chan relayRequest
	responses chan relayResponse

	mu      sync.Mutex
	pending map[uint64]chan relayResponse
	nextID  atomic.Uint64

	started   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

func NewRelayFetcher(inner Fetcher) *RelayFetcher {
	return &RelayFetcher{
		inner:     inner,
		requests:  make(chan relayRequest, 16),
		responses: make(chan relayResponse, 16),
		pending:   make(map[uint64]chan relayResponse),
		done:      make(chan struct{}),
	}
}

// Start launches the worker and the response dispatcher. Calling it twice is a no-op.
func (r *RelayFetcher) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.worker()
	go r.dispatch()
	log.Println("[Relay] Worker started")
}

// Close stops the worker. In-flight and later calls return ErrRelayUnavailable.
func (r *RelayFetcher) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		log.Println("[Relay] Worker stopped")
	})
}

func (r *RelayFetcher) available() bool {
	if !r.started.Load() {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

func (r *RelayFetcher) Do(ctx context.Context, req *Request) (*Response, error) {
	if !r.available() {
		return nil, ErrRelayUnavailable
	}

	id := r.nextID.Add(1)
	ch := make(chan relayResponse, 1)

	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	select {
	case r.requests <- relayRequest{ID: id, Ctx: ctx, Req: req}:
	case <-r.done:
		return nil, ErrRelayUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case msg := <-ch:
		return msg.Resp, msg.Err
	case <-r.done:
		return nil, ErrRelayUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of calls waiting for a response.
func (r *RelayFetcher) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *RelayFetcher) worker() {
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.requests:
			go func(msg relayRequest) {
				resp, err := r.inner.Do(msg.Ctx, msg.Req)
				select {
				case r.responses <- relayResponse{ID: msg.ID, Resp: resp, Err: err}:
				case <-r.done:
				}
			}(msg)
		}
	}
}

func (r *RelayFetcher) dispatch() {
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.responses:
			r.mu.Lock()
			ch, ok := r.pending[msg.ID]
			r.mu.Unlock()
			if !ok {
				// caller gave up
				continue
			}
			ch <- msg
		}
	}
}
