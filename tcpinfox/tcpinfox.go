// Package tcpinfox populates the kernel-reported subset of a
// transportinfo.TransportInfo by issuing socket-option queries against
// a live socket. Everything here is best-effort: acquisition must never
// destabilize the connection it observes, so no operation panics or
// returns more than a boolean plus sentinel values, and a captured
// errno, on failure.
//
// Platform support is selected at build time. Linux reads struct
// tcp_info under TCP_INFO; Darwin reads struct tcp_connection_info
// under TCP_CONNECTION_INFO and normalizes it into the same canonical
// shape; everything else reports ErrNoSupport without attempting a
// call.
package tcpinfox

import (
	"errors"
	"os"
	"syscall"

	"github.com/apex/log"
	"github.com/m-lab/tcp-info/tcp"

	"github.com/m-lab/transportinfo"
	"github.com/m-lab/transportinfo/metrics"
)

// ErrNoSupport is returned on systems that do not expose the queried
// socket option.
var ErrNoSupport = errors.New("socket option not supported on this platform")

// ErrNoFile is returned when the caller supplied no file descriptor.
var ErrNoFile = errors.New("no file descriptor")

// Indirection over the platform queries so tests can make one query
// fail while another succeeds. Production code never reassigns these.
var (
	getTCPInfoFn           = getTCPInfo
	getCongestionControlFn = getCongestionControl
	getMaxPacingRateFn     = getMaxPacingRate
)

// Conn is the capability the probe needs from a connection: access to
// the underlying file descriptor. *net.TCPConn satisfies it. File is
// expected to return a dup of the descriptor, which the probe closes
// when done.
type Conn interface {
	File() (*os.File, error)
}

// GetTCPInfo reads the kernel TCP snapshot for fp in the canonical
// shape. The error, if any, carries the OS error code when the syscall
// itself failed.
func GetTCPInfo(fp *os.File) (*tcp.LinuxTCPInfo, error) {
	if fp == nil {
		return nil, ErrNoFile
	}
	info, err := getTCPInfoFn(fp)
	metrics.CountProbe("tcp_info", err)
	return info, err
}

// GetRTT returns the kernel's smoothed RTT estimate for fp in
// microseconds, or transportinfo.Unmeasured on any failure. This is
// exposed standalone because callers frequently want the RTT without
// paying for the rest of the snapshot handling.
func GetRTT(fp *os.File) int64 {
	if fp == nil {
		return transportinfo.Unmeasured
	}
	info, err := getTCPInfoFn(fp)
	metrics.CountProbe("rtt", err)
	if err != nil {
		return transportinfo.Unmeasured
	}
	return int64(info.RTT)
}

// GetCongestionControl reads the congestion-control algorithm name
// configured on fp. Only supported on Linux.
func GetCongestionControl(fp *os.File) (string, error) {
	if fp == nil {
		return "", ErrNoFile
	}
	name, err := getCongestionControlFn(fp)
	metrics.CountProbe("congestion_control", err)
	return name, err
}

// GetMaxPacingRate reads the socket's configured maximum pacing rate in
// bytes per second. Only supported on Linux.
func GetMaxPacingRate(fp *os.File) (int64, error) {
	if fp == nil {
		return transportinfo.Unmeasured, ErrNoFile
	}
	rate, err := getMaxPacingRateFn(fp)
	metrics.CountProbe("max_pacing_rate", err)
	return rate, err
}

// Init fills the kernel-reported fields of ti from conn. It returns
// true when the TCP snapshot, the minimal useful information, was
// obtained. See InitFile for the detailed contract.
func Init(ti *transportinfo.TransportInfo, conn Conn) bool {
	if conn == nil {
		return false
	}
	fp, err := conn.File()
	if err != nil || fp == nil {
		return false
	}
	// File() handed us a dup of the descriptor.
	defer fp.Close()
	return InitFile(ti, fp)
}

// InitFile is Init for callers that already hold the connection's
// *os.File. It does not take ownership of fp.
//
// An unusable handle fails immediately with no mutation. Otherwise a
// probe always represents current kernel state: ValidTCPInfo, the
// snapshot-derived scalars, and the secondary fields (CAAlgo,
// MaxPacingRate) are reset before each attempt, so a re-probe never
// leaves stale values from an earlier call. Failure of a secondary
// query does not fail the probe; failure of the snapshot read captures
// the OS error code in ti.TCPInfoErrno and leaves the scalars at their
// sentinels.
func InitFile(ti *transportinfo.TransportInfo, fp *os.File) bool {
	if ti == nil || fp == nil || int(fp.Fd()) < 0 {
		return false
	}

	ti.ValidTCPInfo = false
	ti.TCPInfoErrno = 0
	resetScalars(ti)
	info, err := getTCPInfoFn(fp)
	metrics.CountProbe("tcp_info", err)
	if err != nil {
		ti.TCPInfoErrno = errnoOf(err)
		log.WithError(err).Debug("tcpinfox: TCP snapshot unavailable")
	} else {
		ti.TCPInfo = *info
		ti.ValidTCPInfo = true
		copyScalars(ti, info)
	}

	// Secondary queries are independently best-effort and never gate on
	// the snapshot result.
	ti.CAAlgo = ""
	name, err := getCongestionControlFn(fp)
	metrics.CountProbe("congestion_control", err)
	if err == nil {
		ti.CAAlgo = name
	}

	ti.MaxPacingRate = transportinfo.Unmeasured
	rate, err := getMaxPacingRateFn(fp)
	metrics.CountProbe("max_pacing_rate", err)
	if err == nil {
		ti.MaxPacingRate = rate
	}

	return ti.ValidTCPInfo
}

// resetScalars returns every snapshot-derived scalar to its sentinel.
// Consumers branch on -1, not on ValidTCPInfo, so a failed re-probe
// must not leave an earlier probe's values looking current.
func resetScalars(ti *transportinfo.TransportInfo) {
	ti.RTT = transportinfo.Unmeasured
	ti.RTTVar = transportinfo.Unmeasured
	ti.Rtx = transportinfo.Unmeasured
	ti.RtxTimeouts = transportinfo.Unmeasured
	ti.RTO = transportinfo.Unmeasured
	ti.MSS = transportinfo.Unmeasured
	ti.Cwnd = transportinfo.Unmeasured
	ti.CwndBytes = transportinfo.Unmeasured
	ti.Ssthresh = transportinfo.Unmeasured
}

// errnoOf extracts the numeric OS error code from err, or returns zero
// when err carries none (e.g. ErrNoSupport).
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
