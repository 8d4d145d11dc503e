// Package measurer periodically re-probes the kernel telemetry of a
// live websocket connection and emits the snapshots for consumption,
// e.g. for streaming back to the peer as JSON messages.
package measurer

import (
	"context"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-lab/go/memoryless"
	"github.com/m-lab/tcp-info/inetdiag"

	"github.com/m-lab/transportinfo"
	"github.com/m-lab/transportinfo/fdcache"
	"github.com/m-lab/transportinfo/logging"
	"github.com/m-lab/transportinfo/metrics"
	"github.com/m-lab/transportinfo/netx"
)

// Sampling intervals. Sampling is poisson-distributed between Min and
// Max so that periodic kernel behavior cannot alias with our polling.
const (
	MinSamplingInterval     = 100 * time.Millisecond
	AverageSamplingInterval = 250 * time.Millisecond
	MaxSamplingInterval     = time.Second
)

// ConnectionInfo identifies the connection a Measurement belongs to.
type ConnectionInfo struct {
	// Client is the client endpoint.
	Client string `json:"client"`

	// Server is the server endpoint.
	Server string `json:"server"`

	// UUID is the unique identifier of this connection.
	UUID string `json:"uuid"`
}

// Measurement is one sample of a connection's kernel telemetry. It is
// meant to be serialized as JSON and sent as a textual message.
type Measurement struct {
	// ElapsedTime is the number of microseconds since the stream began.
	ElapsedTime int64 `json:"elapsed_time"`

	// ConnectionInfo identifies the measured connection. It is repeated
	// in every sample so each message is self-contained.
	ConnectionInfo *ConnectionInfo `json:"connection_info,omitempty"`

	// TransportInfo is the probed snapshot, present when the kernel
	// snapshot was obtained.
	TransportInfo *transportinfo.TransportInfo `json:"transport_info,omitempty"`

	// BBRInfo is present when the connection is using TCP BBR.
	BBRInfo *inetdiag.BBRInfo `json:"bbr_info,omitempty"`
}

// Measurer probes one websocket connection.
type Measurer struct {
	conn   *websocket.Conn
	uuid   string
	ticker *memoryless.Ticker
}

// New creates a Measurer for conn, identified by uuid in the emitted
// samples.
func New(conn *websocket.Conn, uuid string) *Measurer {
	return &Measurer{
		conn: conn,
		uuid: uuid,
	}
}

// target locates the probe capability for the underlying connection:
// directly, when the connection was accepted by a netx.Listener, or via
// the fdcache otherwise. The returned file, when non-nil, is owned by
// the caller.
func (m *Measurer) target() (netx.ConnInfo, *os.File) {
	conn := m.conn.UnderlyingConn()
	if ci := netx.ToConnInfo(conn); ci != nil {
		return ci, nil
	}
	if fp := fdcache.GetAndForgetFile(conn); fp != nil {
		return netx.FileConnInfo(conn, fp), fp
	}
	return nil, nil
}

func (m *Measurer) loop(ctx context.Context, timeout time.Duration, dst chan<- Measurement) {
	logging.Logger.Debug("measurer: start")
	defer logging.Logger.Debug("measurer: stop")
	defer close(dst)
	ci, fp := m.target()
	if ci == nil {
		logging.Logger.Warn("measurer: no file descriptor for connection")
		return
	}
	if fp != nil {
		defer fp.Close()
	}
	metrics.LiveStreams.Inc()
	defer metrics.LiveStreams.Dec()
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	// The ticker closes its channel once mctx expires.
	ticker, err := memoryless.NewTicker(mctx, memoryless.Config{
		Min:      MinSamplingInterval,
		Expected: AverageSamplingInterval,
		Max:      MaxSamplingInterval,
	})
	if err != nil {
		logging.Logger.WithError(err).Warn("measurer: memoryless.NewTicker failed")
		return
	}
	m.ticker = ticker
	start := time.Now()
	connectionInfo := &ConnectionInfo{
		Client: m.conn.RemoteAddr().String(),
		Server: m.conn.LocalAddr().String(),
		UUID:   m.uuid,
	}
	for now := range ticker.C {
		measurement := Measurement{
			ElapsedTime:    int64(now.Sub(start) / time.Microsecond),
			ConnectionInfo: connectionInfo,
		}
		ti := transportinfo.New()
		if ci.Probe(ti) {
			measurement.TransportInfo = ti
		}
		if bbrinfo, err := ci.ReadBBRInfo(); err == nil {
			measurement.BBRInfo = &bbrinfo
		}
		dst <- measurement // Liveness: this is blocking
	}
}

// Start runs the measurement loop in a background goroutine and emits
// the measurements on the returned channel.
//
// Liveness guarantee: the measurer always terminates after the given
// timeout, provided that the consumer keeps reading from the returned
// channel. It may be stopped early by canceling ctx or calling Stop.
func (m *Measurer) Start(ctx context.Context, timeout time.Duration) <-chan Measurement {
	dst := make(chan Measurement)
	go m.loop(ctx, timeout, dst)
	return dst
}

// Stop ends the measurements and drains src so the measurement
// goroutine can exit. Users that call Start should also call Stop.
func (m *Measurer) Stop(src <-chan Measurement) {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	for range src {
		// drain
	}
}
