package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ports"
)

// lineEncoder renders every operation as one line of a fixed width. An
// operation whose Doc is an int gets that many bytes instead. The ID "bad"
// fails to encode.
type lineEncoder struct {
	width int
}

func (e lineEncoder) Encode(op domain.Operation) ([]byte, error) {
	if op.ID == "bad" {
		return nil, &domain.EncodingError{Action: op.Action, ID: op.ID, Err: errors.New("unencodable")}
	}
	width := e.width
	if n, ok := op.Doc.(int); ok {
		width = n
	}
	return []byte(fmt.Sprintf("%-*s\n", width-1, op.ID)), nil
}

// echoParser reports one successful item per body line, using the trimmed
// line as the item ID.
type echoParser struct {
	drop int
	err  error
}

func (p echoParser) Parse(raw ports.RawResponse) (*domain.BatchResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	resp := &domain.BatchResponse{Took: time.Millisecond}
	for _, line := range bytes.Split(bytes.TrimSuffix(raw.Body, []byte("\n")), []byte("\n")) {
		resp.Items = append(resp.Items, domain.Item{
			Action: domain.ActionIndex,
			ID:     strings.TrimSpace(string(line)),
			Status: 201,
			Result: "created",
		})
	}
	if p.drop > 0 && len(resp.Items) >= p.drop {
		resp.Items = resp.Items[:len(resp.Items)-p.drop]
	}
	return resp, nil
}

// fakeTransport echoes the request body back and records every request.
type fakeTransport struct {
	mu       sync.Mutex
	requests []ports.Request

	// failFirst makes the first n calls fail.
	failFirst int
	delay     time.Duration

	active    int32
	maxActive int32
}

func (f *fakeTransport) Send(ctx context.Context, req ports.Request) (ports.RawResponse, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		max := atomic.LoadInt32(&f.maxActive)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxActive, max, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	calls := len(f.requests)
	f.mu.Unlock()

	if calls <= f.failFirst {
		return ports.RawResponse{}, errors.New("connection refused")
	}
	return ports.RawResponse{Status: 200, Body: req.Body}, nil
}

func (f *fakeTransport) Requests() []ports.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.Request{}, f.requests...)
}

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockEmitter records dispatcher events.
type mockEmitter struct {
	mu      sync.Mutex
	flushes []domain.FlushTrigger
	done    []Result
	states  []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
}

func (m *mockEmitter) OnFlush(trigger domain.FlushTrigger, ops, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes = append(m.flushes, trigger)
}

func (m *mockEmitter) OnBatchDone(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = append(m.done, res)
}

func (m *mockEmitter) OnStateChange(prev, cur State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, stateChangeEvent{prev, cur})
}

func (m *mockEmitter) States() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.states...)
}

func index(id string) domain.Operation {
	return domain.NewIndex(nil).WithID(id)
}
