package appointmenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	redisclient "github.com/hackgods/mediquick-scheduling/internal/redis"
)

// LocalLocker serializes callers per slot key in process, like the Redis locker
// without the network.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.slots[slotKey]
	if !ok {
		m = &sync.Mutex{}
		l.slots[slotKey] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

// NoopLocker runs fn without any mutual exclusion, leaving the repository's
// uniqueness check as the only guard.
type NoopLocker struct{}

func (NoopLocker) WithSlotLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// BusyLocker behaves as if another request always holds the lock.
type BusyLocker struct{}

func (BusyLocker) WithSlotLock(context.Context, string, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// DownLocker behaves like the Redis locker with Redis unreachable: it never runs fn.
type DownLocker struct{}

func (DownLocker) WithSlotLock(_ context.Context, slotKey string, _ func(ctx context.Context) error) error {
	return fmt.Errorf("%w: acquire lock:slot:%s: dial tcp 127.0.0.1:6379: connect: connection refused",
		redisclient.ErrLockUnavailable, slotKey)
}

// RecordingPublisher keeps every published event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

type PublishedEvent struct {
	Type          string
	AppointmentID uuid.UUID
	Payload       []byte
}

func (p *RecordingPublisher) Publish(_ context.Context, eventType string, appointmentID uuid.UUID, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, PublishedEvent{Type: eventType, AppointmentID: appointmentID, Payload: payload})
	return nil
}

func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
