package protocol

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/crane-service-go/internal/codec"
	"github.com/wagiedev/crane-service-go/internal/config"
	"github.com/wagiedev/crane-service-go/internal/errors"
	"github.com/wagiedev/crane-service-go/internal/metrics"
)

// RegistryConfig tunes a Registry. The zero value matches replies in FIFO
// order with the default timeouts.
type RegistryConfig struct {
	Policy   config.MatchPolicy
	Timeouts config.Timeouts
	Metrics  metrics.Recorder
}

// PendingCall is a snapshot of one call awaiting a reply.
type PendingCall struct {
	ID       uint64
	Method   string
	IssuedAt time.Time
}

// Registry tracks calls awaiting a worker reply.
//
// Insertion, removal by timeout, removal by reply and the exit sweep are
// serialised by one mutex. Writes to the worker are serialised by a separate
// write slot that is acquired before an id is allocated and released after
// the line is written, so the order of entries equals the order of lines on
// the wire.
type Registry struct {
	log       *slog.Logger
	transport config.Transport
	policy    config.MatchPolicy
	timeouts  config.Timeouts
	metrics   metrics.Recorder

	mu     sync.Mutex
	queue  *list.List // of *pendingCall, oldest first
	byID   map[uint64]*list.Element
	nextID uint64

	writeSlot chan struct{}
}

// pendingCall is one registry entry.
type pendingCall struct {
	id       uint64
	method   string
	timeout  time.Duration
	issuedAt time.Time
	timer    *time.Timer
	result   chan callResult // buffered, receives exactly once
	settled  bool
}

type callResult struct {
	resp *codec.Response
	err  error
}

// NewRegistry creates a registry that writes through transport.
func NewRegistry(log *slog.Logger, transport config.Transport, cfg RegistryConfig) *Registry {
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NopRecorder{}
	}

	policy := cfg.Policy
	if policy == "" {
		policy = config.MatchFIFO
	}

	return &Registry{
		log:       log.With("component", "registry"),
		transport: transport,
		policy:    policy,
		timeouts:  cfg.Timeouts,
		metrics:   rec,
		queue:     list.New(),
		byID:      make(map[uint64]*list.Element, 8),
		writeSlot: make(chan struct{}, 1),
	}
}

// Issue sends one call and waits for its reply.
//
// It returns the raw result on success, a *errors.WorkerError when the worker
// replied with an error, an error wrapping errors.ErrRequestTimeout when the
// method's timeout elapsed first, or the error passed to FailAll.
//
// Cancelling ctx returns ctx.Err() to this caller only. The entry stays in
// the registry until a reply, its timeout, or FailAll settles it, so later
// replies keep their alignment with the worker's output.
func (r *Registry) Issue(ctx context.Context, params codec.Params) (json.RawMessage, error) {
	result, _, err := r.IssueSeq(ctx, params)

	return result, err
}

// IssueSeq is Issue that also returns the call's id. Ids increase in the
// order requests are written to the worker. The id is 0 when no request
// was written.
func (r *Registry) IssueSeq(ctx context.Context, params codec.Params) (json.RawMessage, uint64, error) {
	method := params.Method()

	if !r.transport.IsRunning() {
		return nil, 0, errors.ErrNotRunning
	}

	select {
	case r.writeSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}

	call, data, err := r.insert(method, params)
	if err != nil {
		<-r.writeSlot

		return nil, 0, err
	}

	// A partially written line would corrupt the stream, so the write
	// outlives the caller's context.
	writeCtx := context.WithoutCancel(ctx)

	go func() {
		err := r.transport.SendMessage(writeCtx, data)
		<-r.writeSlot

		if err != nil {
			r.log.Warn("Failed to write request", "method", method, "id", call.id, "error", err)
			r.settle(call, callResult{err: fmt.Errorf("send %s request: %w", method, err)}, metrics.OutcomeWriteErr)
		}
	}()

	select {
	case res := <-call.result:
		result, err := unwrapResult(method, res)

		return result, call.id, err
	case <-ctx.Done():
		r.log.Debug("Caller stopped waiting", "method", method, "id", call.id, "error", ctx.Err())

		return nil, call.id, ctx.Err()
	}
}

// insert allocates an id, appends the entry, arms its timer and frames the
// request line.
func (r *Registry) insert(method string, params codec.Params) (*pendingCall, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	call := &pendingCall{
		id:       r.nextID,
		method:   method,
		timeout:  r.timeouts.For(method),
		issuedAt: time.Now(),
		result:   make(chan callResult, 1),
	}

	req := &codec.Request{Method: method, Params: params}
	if r.policy == config.MatchByID {
		id := call.id
		req.ID = &id
	}

	data, err := codec.Encode(req)
	if err != nil {
		return nil, nil, err
	}

	r.byID[call.id] = r.queue.PushBack(call)
	call.timer = time.AfterFunc(call.timeout, func() { r.expire(call) })

	r.metrics.CallStarted(method)
	r.log.Debug("Issued call", "method", method, "id", call.id, "timeout", call.timeout)

	return call, data, nil
}

// HandleResponse settles the call a reply belongs to.
//
// Under MatchFIFO that is the oldest pending call. Under MatchByID it is the
// call with the echoed id, or the oldest one when the reply carries no id.
// A reply with no matching call is logged and discarded.
func (r *Registry) HandleResponse(resp *codec.Response) {
	r.mu.Lock()

	elem := r.match(resp)
	if elem == nil {
		r.mu.Unlock()
		r.log.Warn("Discarding reply with no pending call", "is_error", resp.IsError())

		return
	}

	call := r.removeLocked(elem)
	r.mu.Unlock()

	outcome := metrics.OutcomeOK
	if resp.IsError() {
		outcome = metrics.OutcomeWorkerErr
	}

	r.deliver(call, callResult{resp: resp}, outcome)
}

func (r *Registry) match(resp *codec.Response) *list.Element {
	if r.policy == config.MatchByID && resp.ID != nil {
		return r.byID[*resp.ID]
	}

	return r.queue.Front()
}

// FailAll settles every pending call with err and empties the registry.
func (r *Registry) FailAll(err error) {
	r.mu.Lock()

	calls := make([]*pendingCall, 0, r.queue.Len())
	for r.queue.Len() > 0 {
		calls = append(calls, r.removeLocked(r.queue.Front()))
	}

	r.mu.Unlock()

	if len(calls) > 0 {
		r.log.Info("Failing pending calls", "count", len(calls), "error", err)
	}

	for _, call := range calls {
		r.deliver(call, callResult{err: err}, metrics.OutcomeTerminated)
	}
}

// Len returns the number of calls awaiting a reply.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.queue.Len()
}

// Pending returns the calls awaiting a reply, oldest first.
func (r *Registry) Pending() []PendingCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PendingCall, 0, r.queue.Len())
	for e := r.queue.Front(); e != nil; e = e.Next() {
		call := e.Value.(*pendingCall) //nolint:forcetypeassert // queue only holds *pendingCall
		out = append(out, PendingCall{ID: call.id, Method: call.method, IssuedAt: call.issuedAt})
	}

	return out
}

// expire runs on the call's timer. It is a no-op once the call settled.
func (r *Registry) expire(call *pendingCall) {
	err := fmt.Errorf("%w: %s after %s", errors.ErrRequestTimeout, call.method, call.timeout)

	if r.settle(call, callResult{err: err}, metrics.OutcomeTimeout) {
		r.log.Warn("Call timed out", "method", call.method, "id", call.id, "timeout", call.timeout)
	}
}

// settle removes call if it is still pending and delivers res. It reports
// whether this invocation won.
func (r *Registry) settle(call *pendingCall, res callResult, outcome string) bool {
	r.mu.Lock()

	if call.settled {
		r.mu.Unlock()

		return false
	}

	elem := r.byID[call.id]
	r.removeLocked(elem)
	r.mu.Unlock()

	r.deliver(call, res, outcome)

	return true
}

// removeLocked unlinks an entry and marks it settled. r.mu must be held.
func (r *Registry) removeLocked(elem *list.Element) *pendingCall {
	call := r.queue.Remove(elem).(*pendingCall) //nolint:forcetypeassert // queue only holds *pendingCall
	delete(r.byID, call.id)

	call.settled = true
	if call.timer != nil {
		call.timer.Stop()
	}

	return call
}

func (r *Registry) deliver(call *pendingCall, res callResult, outcome string) {
	r.metrics.CallFinished(call.method, outcome, time.Since(call.issuedAt))
	call.result <- res
}

func unwrapResult(method string, res callResult) (json.RawMessage, error) {
	if res.err != nil {
		return nil, res.err
	}

	if res.resp.IsError() {
		return nil, &errors.WorkerError{Method: method, Message: res.resp.Error}
	}

	return res.resp.Result, nil
}
