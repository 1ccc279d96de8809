package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/logx"
)

// Facade is a Unix-socket JSON-RPC implementation of ax.Facade and
// ax.ObserverFactory. One Facade owns one socket connection; concurrent
// requests are multiplexed over it by request id and bounded by a
// semaphore sized to the configured worker pool, matching the teacher's
// worker-pool-backed request dispatch.
type Facade struct {
	conn    net.Conn
	timeout time.Duration
	sem     chan struct{}

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *responseWire

	eventMu       sync.Mutex
	eventHandlers map[int32]map[uint64]func(ax.Notification)
	nextHandlerID uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to socketPath and starts the read-demux goroutine.
// poolSize bounds the number of requests in flight at once.
func Dial(ctx context.Context, socketPath string, timeout time.Duration, poolSize int) (*Facade, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", socketPath, err)
	}
	if poolSize <= 0 {
		poolSize = 1
	}
	f := &Facade{
		conn:          conn,
		timeout:       timeout,
		sem:           make(chan struct{}, poolSize),
		pending:       make(map[string]chan *responseWire),
		eventHandlers: make(map[int32]map[uint64]func(ax.Notification)),
		closed:        make(chan struct{}),
	}
	go f.readLoop()
	return f, nil
}

// Close tears down the underlying socket connection.
func (f *Facade) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.closed)
		err = f.conn.Close()
	})
	return err
}

func (f *Facade) readLoop() {
	r := bufio.NewReader(f.conn)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			f.failAllPending(err)
			return
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			logx.For("ax/rpc").Debug().Err(err).Msg("malformed envelope, dropping")
			continue
		}
		switch env.Type {
		case "response":
			f.deliverResponse(env.Response)
		case "event":
			f.deliverEvent(env.Event)
		default:
			logx.For("ax/rpc").Debug().Str("type", env.Type).Msg("unknown envelope type, dropping")
		}
	}
}

func (f *Facade) deliverResponse(resp *responseWire) {
	if resp == nil {
		return
	}
	f.pendingMu.Lock()
	ch, ok := f.pending[resp.ID]
	if ok {
		delete(f.pending, resp.ID)
	}
	f.pendingMu.Unlock()
	if ok {
		ch <- resp
	}
}

func (f *Facade) deliverEvent(ev *eventWire) {
	if ev == nil {
		return
	}
	f.eventMu.Lock()
	handlers := make([]func(ax.Notification), 0, len(f.eventHandlers[ev.PID]))
	for _, h := range f.eventHandlers[ev.PID] {
		handlers = append(handlers, h)
	}
	f.eventMu.Unlock()

	n := ax.Notification{Name: ax.NotificationName(ev.Notification), Element: ax.NewElement(ev.ElementID)}
	for _, h := range handlers {
		h(n)
	}
}

func (f *Facade) failAllPending(cause error) {
	f.pendingMu.Lock()
	pending := f.pending
	f.pending = make(map[string]chan *responseWire)
	f.pendingMu.Unlock()

	errResp := &responseWire{Error: &errorWire{Code: -1, Message: fmt.Sprintf("rpc: connection closed: %v", cause)}}
	for _, ch := range pending {
		ch <- errResp
	}
}

// request performs one round-trip: marshal params, register a pending
// response channel, write the envelope, wait for the matching response (or
// ctx/timeout), and decode its result into out (if non-nil).
func (f *Facade) request(ctx context.Context, method string, params, out any) error {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-f.sem }()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	id := uuid.New().String()
	env, err := newRequestEnvelope(id, method, params)
	if err != nil {
		return fmt.Errorf("rpc: marshal params for %s: %w", method, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("rpc: marshal envelope for %s: %w", method, err)
	}
	data = append(data, '\n')

	ch := make(chan *responseWire, 1)
	f.pendingMu.Lock()
	f.pending[id] = ch
	f.pendingMu.Unlock()

	f.writeMu.Lock()
	if dl, ok := ctx.Deadline(); ok {
		_ = f.conn.SetWriteDeadline(dl)
	}
	_, writeErr := f.conn.Write(data)
	f.writeMu.Unlock()
	if writeErr != nil {
		f.pendingMu.Lock()
		delete(f.pending, id)
		f.pendingMu.Unlock()
		return fmt.Errorf("rpc: write %s: %w", method, writeErr)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return classifyWireError(resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("rpc: decode result for %s: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		return &ax.TimeoutError{Duration: f.timeout}
	case <-f.closed:
		return ax.ErrFailure
	}
}

// classifyWireError maps the server's error code onto internal/ax's
// low-level sentinel errors, which internal/ax.Classify then rewrites into
// the property-error taxonomy exactly as it does for any other Facade.
func classifyWireError(e *errorWire) error {
	switch e.Code {
	case codeInvalidElement:
		return ax.ErrInvalidElement
	case codeIllegalArgument:
		return ax.ErrIllegalArgument
	case codeNotImplemented:
		return ax.ErrNotImplemented
	case codeCannotComplete:
		return ax.ErrCannotComplete
	default:
		return fmt.Errorf("%w: %s", ax.ErrFailure, e.Message)
	}
}

// Wire error codes, agreed with the server side of this protocol.
const (
	codeCannotComplete  = 1
	codeInvalidElement  = 2
	codeIllegalArgument = 3
	codeNotImplemented  = 4
)

func (f *Facade) EnumerateApplications(ctx context.Context) ([]ax.Element, error) {
	var result struct {
		Elements []string `json:"elements"`
	}
	if err := f.request(ctx, methodEnumerateApplications, struct{}{}, &result); err != nil {
		return nil, err
	}
	out := make([]ax.Element, len(result.Elements))
	for i, id := range result.Elements {
		out[i] = ax.NewElement(id)
	}
	return out, nil
}

func (f *Facade) ElementForPID(ctx context.Context, pid int32) (ax.Element, error) {
	params := struct {
		PID int32 `json:"pid"`
	}{PID: pid}
	var result struct {
		ElementID string `json:"elementId"`
	}
	if err := f.request(ctx, methodElementForPID, params, &result); err != nil {
		return ax.Element{}, err
	}
	if result.ElementID == "" {
		return ax.Element{}, ax.ErrInvalidElement
	}
	return ax.NewElement(result.ElementID), nil
}

func (f *Facade) PID(ctx context.Context, el ax.Element) (int32, error) {
	params := struct {
		ElementID string `json:"elementId"`
	}{ElementID: el.String()}
	var result struct {
		PID int32 `json:"pid"`
	}
	if err := f.request(ctx, methodPID, params, &result); err != nil {
		return 0, err
	}
	return result.PID, nil
}

func (f *Facade) Attribute(ctx context.Context, el ax.Element, name ax.Attr) (any, error) {
	params := struct {
		ElementID string `json:"elementId"`
		Attr      string `json:"attr"`
	}{ElementID: el.String(), Attr: string(name)}
	var result struct {
		Value json.RawMessage `json:"value"`
	}
	if err := f.request(ctx, methodAttribute, params, &result); err != nil {
		return nil, err
	}
	return decodeAttrValue(name, result.Value)
}

func (f *Facade) ArrayAttribute(ctx context.Context, el ax.Element, name ax.Attr) ([]ax.Element, error) {
	params := struct {
		ElementID string `json:"elementId"`
		Attr      string `json:"attr"`
	}{ElementID: el.String(), Attr: string(name)}
	var result struct {
		Elements []string `json:"elements"`
	}
	if err := f.request(ctx, methodArrayAttribute, params, &result); err != nil {
		return nil, err
	}
	out := make([]ax.Element, len(result.Elements))
	for i, id := range result.Elements {
		out[i] = ax.NewElement(id)
	}
	return out, nil
}

func (f *Facade) GetMultipleAttributes(ctx context.Context, el ax.Element, names []ax.Attr) (map[ax.Attr]any, error) {
	attrNames := make([]string, len(names))
	for i, n := range names {
		attrNames[i] = string(n)
	}
	params := struct {
		ElementID string   `json:"elementId"`
		Attrs     []string `json:"attrs"`
	}{ElementID: el.String(), Attrs: attrNames}
	var result struct {
		Values map[string]json.RawMessage `json:"values"`
	}
	if err := f.request(ctx, methodGetMultipleAttributes, params, &result); err != nil {
		return nil, err
	}
	out := make(map[ax.Attr]any, len(names))
	for _, n := range names {
		v, err := decodeAttrValue(n, result.Values[string(n)])
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}

func (f *Facade) SetAttribute(ctx context.Context, el ax.Element, name ax.Attr, value any) error {
	raw, err := encodeAttrValue(value)
	if err != nil {
		return fmt.Errorf("rpc: encode %s: %w", name, err)
	}
	params := struct {
		ElementID string          `json:"elementId"`
		Attr      string          `json:"attr"`
		Value     json.RawMessage `json:"value"`
	}{ElementID: el.String(), Attr: string(name), Value: raw}
	return f.request(ctx, methodSetAttribute, params, nil)
}
