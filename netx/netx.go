// Package netx extends the net package with a Listener whose accepted
// connections mediate access to the underlying socket descriptor. This
// lets callers holding only a net.Conn, possibly wrapped in a tls.Conn,
// run kernel telemetry probes against the live socket.
package netx

import (
	"crypto/tls"
	"net"
	"os"
	"time"

	"github.com/apex/log"
	guuid "github.com/google/uuid"
	"github.com/m-lab/tcp-info/inetdiag"
	"github.com/m-lab/uuid"

	"github.com/m-lab/transportinfo"
	"github.com/m-lab/transportinfo/bbr"
	"github.com/m-lab/transportinfo/fdcache"
	"github.com/m-lab/transportinfo/tcpinfox"
)

// ConnInfo provides telemetry operations on an accepted connection's
// underlying file descriptor.
type ConnInfo interface {
	// GetUUID returns a stable unique identifier for the connection.
	GetUUID() string

	// EnableBBR switches the connection to the BBR congestion control
	// algorithm. Returns bbr.ErrNoSupport where BBR is unavailable.
	EnableBBR() error

	// Probe fills the kernel-reported fields of ti, stamping the
	// connection's addresses when the record does not carry them yet.
	// Reports whether the kernel snapshot was obtained.
	Probe(ti *transportinfo.TransportInfo) bool

	// ReadBBRInfo reads BBR state, when the connection is using BBR.
	ReadBBRInfo() (inetdiag.BBRInfo, error)
}

// Listener wraps a TCPListener so that Accept returns *Conn values.
type Listener struct {
	*net.TCPListener
}

// NewListener creates a new Listener using the given net.TCPListener.
func NewListener(l *net.TCPListener) *Listener {
	return &Listener{TCPListener: l}
}

// Accept a connection, set a 3min keepalive, and return a *Conn holding
// a dup of the socket descriptor for later telemetry operations.
func (ln *Listener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	fp, err := fdcache.TCPConnToFile(tc)
	if err != nil {
		tc.Close()
		return nil, err
	}
	return &Conn{Conn: tc, fp: fp}, nil
}

// Conn is returned by Listener.Accept and implements ConnInfo.
type Conn struct {
	net.Conn
	fp *os.File
}

// Addr supports the net.Addr interface while carrying a reference back
// to the parent Conn.
//
// Why is this necessary? The Conn type visible to application code
// depends on the server protocol: a TLS server hands its handlers a
// tls.Conn, which is a struct, not an interface, and which hides the
// underlying net.Conn it wraps. But tls.Conn does delegate LocalAddr
// and RemoteAddr to the wrapped connection, so by answering those calls
// with an Addr that references the parent we keep a path from any
// wrapped connection back to the socket descriptor.
//
// Because Addrs reference the parent Conn, release them before calling
// Conn.Close.
type Addr struct {
	net.Addr
	parent *Conn
}

// LocalAddr returns the local address as an Addr referencing c.
func (c *Conn) LocalAddr() net.Addr {
	return Addr{Addr: c.Conn.LocalAddr(), parent: c}
}

// RemoteAddr returns the remote address as an Addr referencing c.
func (c *Conn) RemoteAddr() net.Addr {
	return Addr{Addr: c.Conn.RemoteAddr(), parent: c}
}

// Close closes both the connection and the dup'd descriptor.
func (c *Conn) Close() error {
	c.fp.Close()
	return c.Conn.Close()
}

// GetUUID returns an identifier derived from the socket cookie, which
// is stable across every layer that observes the same connection. If
// the kernel cannot supply one, a random identifier is returned so that
// callers always have something to log under.
func (c *Conn) GetUUID() string {
	id, err := uuid.FromFile(c.fp)
	if err != nil {
		log.WithError(err).Warn("netx: falling back to a random connection id")
		return guuid.New().String()
	}
	return id
}

// EnableBBR implements ConnInfo.
func (c *Conn) EnableBBR() error {
	return bbr.Enable(c.fp)
}

// ReadBBRInfo implements ConnInfo.
func (c *Conn) ReadBBRInfo() (inetdiag.BBRInfo, error) {
	return bbr.GetBBRInfo(c.fp)
}

// Probe implements ConnInfo.
func (c *Conn) Probe(ti *transportinfo.TransportInfo) bool {
	ok := tcpinfox.InitFile(ti, c.fp)
	if ti != nil {
		if ti.LocalAddr == nil {
			ti.LocalAddr = c.Conn.LocalAddr()
		}
		if ti.RemoteAddr == nil {
			ti.RemoteAddr = c.Conn.RemoteAddr()
		}
	}
	return ok
}

// ToConnInfo recovers the ConnInfo for a connection accepted by a
// Listener, unwrapping a tls.Conn if needed. It returns nil when conn
// did not come from a Listener.
func ToConnInfo(conn net.Conn) ConnInfo {
	switch c := conn.(type) {
	case *Conn:
		return c
	case *tls.Conn:
		return ToConnInfo(c.NetConn())
	}
	if a, ok := conn.LocalAddr().(Addr); ok {
		return a.parent
	}
	return nil
}

// FileConnInfo returns a ConnInfo for a connection that was not
// accepted by a Listener but whose descriptor was recovered some other
// way, for example from the fdcache. The caller keeps ownership of fp
// and must not Close the returned value.
func FileConnInfo(conn net.Conn, fp *os.File) ConnInfo {
	return &Conn{Conn: conn, fp: fp}
}
