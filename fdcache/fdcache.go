// Package fdcache maps live connections to the *os.File that duplicates
// their socket descriptor, so that code running above a TLS or
// websocket layer can still probe the kernel.
//
// Handlers see whatever net.Conn their server gives them, typically a
// tls.Conn whose underlying socket is private. The listener, however,
// does see the *net.TCPConn at accept time and can dup its descriptor.
// This package bridges the two: the listener deposits the dup'd file
// keyed by the connection's four-tuple, and the handler withdraws it
// later using the same four-tuple, which both layers can compute.
//
// A connection can die between deposit and withdrawal (for example, a
// client that never finishes its HTTP request), so deposits that are
// not withdrawn in time are swept and closed; otherwise the cache would
// hold dead sockets open indefinitely.
package fdcache

import (
	"net"
	"os"
	"sync"
	"time"
)

// sweepInterval is how often, at most, a deposit triggers a sweep.
const sweepInterval = 500 * time.Millisecond

// maxAge is how long an entry may stay unclaimed before the sweep
// closes and drops it.
const maxAge = 3 * time.Second

type entry struct {
	fp      *os.File
	created time.Time
}

// cache holds deposited files keyed by connection four-tuple.
type cache struct {
	mu        sync.Mutex
	entries   map[string]entry
	lastSweep time.Time
}

var defaultCache = &cache{entries: make(map[string]entry)}

// key computes the four-tuple key for conn. Local and remote endpoints
// are both needed: a server may accept on several local addresses, so
// the remote endpoint alone may not be unique.
func key(conn net.Conn) string {
	return conn.LocalAddr().String() + "<=>" + conn.RemoteAddr().String()
}

// TCPConnToFile returns a dup of tc's socket descriptor as an *os.File.
// The caller owns the returned file and must close it; closing it does
// not affect tc. Requires go >= 1.11, where File() stopped forcing the
// socket into blocking mode.
func TCPConnToFile(tc *net.TCPConn) (*os.File, error) {
	return tc.File()
}

// OwnFile transfers ownership of fp to the cache, keyed by conn's
// four-tuple. Passing a nil fp is a programming error and panics. A
// later deposit for the same four-tuple replaces (and closes) the
// earlier one.
func OwnFile(conn net.Conn, fp *os.File) {
	if fp == nil {
		panic("fdcache: OwnFile called with nil *os.File")
	}
	now := time.Now()
	c := defaultCache
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) > sweepInterval {
		c.lastSweep = now
		for k, e := range c.entries {
			if now.Sub(e.created) > maxAge {
				e.fp.Close()
				delete(c.entries, k)
			}
		}
	}
	if old, ok := c.entries[key(conn)]; ok {
		old.fp.Close()
	}
	c.entries[key(conn)] = entry{fp: fp, created: now}
}

// GetAndForgetFile withdraws the file deposited for conn's four-tuple,
// transferring ownership to the caller, or returns nil if there is
// none. Withdraw exactly once per connection: servers should call this
// on every request that reaches a handler, even ones they will reject,
// so entries do not linger until the sweep.
func GetAndForgetFile(conn net.Conn) *os.File {
	c := defaultCache
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key(conn)]
	if !ok {
		return nil
	}
	delete(c.entries, key(conn))
	return e.fp
}
