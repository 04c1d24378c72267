// Package ws tracks live WebSocket connections per user and fans events
// out to them.
package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// sendBuffer is the per-connection outbound channel capacity. A consumer
// that falls further behind than this starts losing pushes; delivery is
// best-effort and history remains authoritative.
const sendBuffer = 64

// Conn is the registry's handle for one live socket. A user with several
// devices or tabs holds several Conns at once.
type Conn struct {
	// ID is unique for the lifetime of the process and never reused;
	// a reconnecting socket always gets a fresh Conn.
	ID  uint64
	UID int32

	ch chan []byte

	// lastPingAt is a unix timestamp in seconds, updated on every client
	// ping. Atomic so the sweep can read it without taking the registry lock.
	lastPingAt atomic.Int64

	// closed is guarded by the owning registry's mutex. Sends and closes
	// both happen under that lock, so a try-send can never hit a closed
	// channel.
	closed bool
}

// Registry maps each uid to its set of live connections. All methods are
// safe for concurrent use; none of them ever blocks on a slow consumer or
// returns an error to the caller.
type Registry struct {
	mu     sync.Mutex
	conns  map[int32][]*Conn
	nextID atomic.Uint64
	logger *zap.Logger

	now func() time.Time
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		conns:  make(map[int32][]*Conn),
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a connection for uid and returns its handle together
// with the receive side of the outbound channel for the socket's write
// loop. The caller must call Remove when the socket closes.
func (r *Registry) Register(uid int32) (*Conn, <-chan []byte) {
	c := &Conn{
		ID:  r.nextID.Add(1),
		UID: uid,
		ch:  make(chan []byte, sendBuffer),
	}
	c.lastPingAt.Store(r.now().Unix())

	r.mu.Lock()
	r.conns[uid] = append(r.conns[uid], c)
	r.mu.Unlock()

	r.logger.Debug("ws connection registered",
		zap.Int32("uid", uid),
		zap.Uint64("conn_id", c.ID),
	)
	return c, c.ch
}

// Remove drops one connection. Removing an id that is not present is a
// no-op, so the socket task and the sweep may race harmlessly.
func (r *Registry) Remove(uid int32, connID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.conns[uid]
	if !ok {
		return
	}
	for i, c := range list {
		if c.ID == connID {
			r.closeLocked(c)
			r.conns[uid] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(r.conns[uid]) == 0 {
		delete(r.conns, uid)
	}
}

// RecordPing refreshes the connection's staleness clock.
func (r *Registry) RecordPing(c *Conn) {
	c.lastPingAt.Store(r.now().Unix())
}

// Send attempts a non-blocking delivery to a single connection. A full
// channel drops the payload; the connection is left alone (eviction is the
// sweep's job). Returns false when the payload was not queued.
func (r *Registry) Send(c *Conn, payload []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trySendLocked(c, payload)
}

// Broadcast delivers payload to every live connection of every given uid.
// Uids with no connections are skipped; full channels drop that one send.
// Never blocks the caller.
func (r *Registry) Broadcast(uids []int32, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, uid := range uids {
		for _, c := range r.conns[uid] {
			if !r.trySendLocked(c, payload) {
				r.logger.Debug("ws broadcast dropped, channel full",
					zap.Int32("uid", uid),
					zap.Uint64("conn_id", c.ID),
				)
			}
		}
	}
}

// PruneStale removes every connection whose last ping is older than maxAge
// and drops uids left with no connections.
func (r *Registry) PruneStale(maxAge time.Duration) {
	cutoff := r.now().Unix() - int64(maxAge.Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()

	for uid, list := range r.conns {
		kept := list[:0]
		for _, c := range list {
			if c.lastPingAt.Load() < cutoff {
				r.closeLocked(c)
				r.logger.Info("ws connection pruned as stale",
					zap.Int32("uid", uid),
					zap.Uint64("conn_id", c.ID),
				)
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(r.conns, uid)
		} else {
			r.conns[uid] = kept
		}
	}
}

// RunSweeper prunes stale connections every interval until ctx is
// cancelled. Meant to run in its own goroutine for the process lifetime.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.PruneStale(maxAge)
		}
	}
}

// ConnCount returns the number of live connections for uid.
func (r *Registry) ConnCount(uid int32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[uid])
}

func (r *Registry) trySendLocked(c *Conn, payload []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.ch <- payload:
		return true
	default:
		return false
	}
}

func (r *Registry) closeLocked(c *Conn) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
