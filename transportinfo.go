// Package transportinfo defines the telemetry record for a single
// network connection: timing milestones, kernel-reported TCP state,
// TLS handshake metadata, and protocol byte counters.
//
// The record is passive. It performs no I/O and cannot fail; all
// acquisition fallibility lives in the tcpinfox package, which fills in
// the kernel-reported subset best-effort. Every numeric field that may
// legitimately be unmeasured defaults to the Unmeasured sentinel, so
// consumers can always distinguish "not measured" from "measured as
// zero". Fields only ever move from sentinel/absent to a concrete
// value; nothing is unset after being set.
//
// The record carries no synchronization. It is owned and mutated by one
// connection-handling goroutine at a time; hand a copy (or establish a
// happens-before edge) before reading it elsewhere. Shared string
// fields are pointers that must be replaced, never mutated through,
// after they are first published.
package transportinfo

import (
	"net"
	"time"

	"github.com/m-lab/tcp-info/tcp"
)

// Unmeasured is the sentinel stored in numeric fields that have not
// been measured. It is load-bearing: consumers must branch on it rather
// than treat it as a real value.
const Unmeasured = -1

// ResumeState describes how the TLS session for a connection was
// established.
type ResumeState int

const (
	// ResumeNA means the connection is not TLS.
	ResumeNA ResumeState = iota
	// ResumeHandshake means a full handshake created a new session.
	ResumeHandshake
	// ResumeResumed means a previous session was resumed.
	ResumeResumed
)

// TransportInfo aggregates everything this package knows about one
// connection. One instance is created per logical connection by the
// code that accepts it; it lives at least as long as the connection and
// usually slightly longer, for final logging.
//
// Timing fields named TimeTo* are latencies in milliseconds measured
// from the start of the request by the transport layer that owns the
// byte events. Callers compute intervals by subtracting two stored
// values themselves; this package never derives metrics.
type TransportInfo struct {
	// AcceptTime is when the connection handshake completed.
	AcceptTime time.Time

	// SetupTime is the time between the connection being accepted and
	// it becoming established.
	SetupTime time.Duration

	// TLSSetupTime is the time spent in the TLS handshake.
	TLSSetupTime time.Duration

	// RTT is the kernel's smoothed round-trip time estimate in
	// microseconds, or Unmeasured.
	RTT int64

	// RTTVar is the RTT variance in microseconds, or Unmeasured.
	RTTVar int64

	// Rtx is the total number of segments retransmitted during the
	// connection lifetime, or Unmeasured.
	Rtx int64

	// RtxTimeouts is the number of retransmissions caused by a
	// retransmission timeout, or Unmeasured.
	RtxTimeouts int64

	// RTO is the current retransmission timeout in microseconds, or
	// Unmeasured.
	RTO int64

	// Cwnd is the congestion window in segments, or Unmeasured.
	Cwnd int64

	// CwndBytes is the congestion window in bytes, or Unmeasured.
	CwndBytes int64

	// MSS is the maximum segment size in bytes, or Unmeasured.
	MSS int64

	// Ssthresh is the slow-start threshold, or Unmeasured.
	Ssthresh int64

	// CAAlgo is the congestion-control algorithm name reported by the
	// kernel, or empty when it could not be read.
	CAAlgo string

	// MaxPacingRate is the socket's configured maximum pacing rate in
	// bytes per second, or Unmeasured.
	MaxPacingRate int64

	// TCPInfo is the raw kernel snapshot in the canonical struct tcp_info
	// shape. Platforms with a different native layout are normalized
	// into this shape by the probe. Only meaningful when ValidTCPInfo
	// is true.
	TCPInfo tcp.LinuxTCPInfo

	// ValidTCPInfo reports whether TCPInfo was successfully read from
	// the kernel by the most recent probe.
	ValidTCPInfo bool

	// TCPInfoErrno is the OS error code captured when the most recent
	// snapshot read failed, and zero otherwise.
	TCPInfoErrno int

	// Secure reports whether the connection is TLS.
	Secure bool

	// SecurityType names what is providing the security.
	SecurityType string

	// Avoid using the TLS* fields for anything other than logging; they
	// may not be populated for all security protocols.

	// TLSCipher is the negotiated ciphersuite name, or nil for non-TLS.
	TLSCipher *string

	// TLSServerName is the SNI value presented by the client, or nil.
	TLSServerName *string

	// TLSClientCiphers is the list of ciphers offered by the client.
	TLSClientCiphers *string

	// TLSClientCiphersHex is the offered ciphers as 4-digit hex strings.
	TLSClientCiphersHex *string

	// TLSClientExts is the list of TLS extensions sent by the client.
	TLSClientExts *string

	// TLSClientSigAlgs is the list of hash and signature algorithms sent
	// by the client.
	TLSClientSigAlgs *string

	// TLSClientSupportedVersions is the list of versions the client sent
	// in the supported-versions extension.
	TLSClientSupportedVersions *string

	// TLSSignature is a hash over the TLS parameters sent by the client.
	TLSSignature *string

	// TLSVersion is the negotiated protocol version in OpenSSL's packed
	// format (major in the high 4 bits of each byte), zero for non-TLS.
	TLSVersion uint16

	// TLSCertSigAlg is the signature algorithm of the server
	// certificate, or nil.
	TLSCertSigAlg *string

	// TLSCertSize is the server certificate size in bytes, zero for
	// non-TLS.
	TLSCertSize uint16

	// TLSResume records whether the session was new or resumed.
	TLSResume ResumeState

	// TLSError holds TLS failure detail, empty on success.
	TLSError string

	// TLSSetupBytesWritten and TLSSetupBytesRead count bytes exchanged
	// during the TLS handshake.
	TLSSetupBytesWritten uint64
	TLSSetupBytesRead    uint64

	// TokenBindingParam is the token-binding key parameter negotiated
	// during the handshake, or nil when token binding was not
	// negotiated.
	TokenBindingParam *uint8

	// TCPSignature is a hash over TCP/IP header field values, sometimes
	// concatenated with the raw signature, or nil.
	TCPSignature *string

	// TCPFingerprint is a hash over TCP/IP header fields (especially TCP
	// options), sometimes concatenated with the raw fingerprint, or nil.
	TCPFingerprint *string

	// TFOSucceeded reports whether TCP fast open succeeded on this
	// connection.
	TFOSucceeded bool

	// TotalBytes is the total number of bytes sent over the connection.
	TotalBytes int64

	// IngressBodySize and EgressBodySize count body bytes read and
	// written.
	IngressBodySize uint64
	EgressBodySize  uint64

	// FirstBodyByteOffset and LastBodyByteOffset are stream offsets of
	// the first and last body byte. They are only meaningful for
	// protocols that multiplex responses over one connection, where the
	// two offsets bound the bytes interleaved with a given response;
	// they are nil otherwise.
	FirstBodyByteOffset *uint64
	LastBodyByteOffset  *uint64

	// IngressHeader and EgressHeader count header bytes read and
	// written.
	IngressHeader HeaderSize
	EgressHeader  HeaderSize

	// TimeToFirstHeaderByte is the time to the first header byte written
	// to the kernel send buffer, in milliseconds, or Unmeasured.
	TimeToFirstHeaderByte int32

	// TimeToFirstByte is the time to the first body byte written to the
	// kernel send buffer, or Unmeasured.
	TimeToFirstByte int32

	// TimeToLastByte is the time to the last body byte written to the
	// kernel send buffer, or Unmeasured.
	TimeToLastByte int32

	// TimeToFirstByteTx is the time to the first body byte written by
	// the kernel to the NIC, or Unmeasured.
	TimeToFirstByteTx int32

	// TimeToLastByteTx is the time to the last body byte written by the
	// kernel to the NIC, or Unmeasured.
	TimeToLastByteTx int32

	// TimeToLastBodyByteAck is the time to the TCP ack for the last
	// written body byte, or Unmeasured.
	TimeToLastBodyByteAck int32

	// LastByteAckLatency is the time between the kernel sending the last
	// byte and receiving the ack for it, or Unmeasured.
	LastByteAckLatency int32

	// ProxyLatency is the time spent inside the proxy, or Unmeasured.
	ProxyLatency int32

	// ClientLatency is the time between the connection being accepted
	// and the client message headers completing, or Unmeasured.
	ClientLatency int32

	// ServerLatency is the latency of communication with the upstream
	// server, or Unmeasured.
	ServerLatency int32

	// ConnectLatency is the time used to obtain a usable connection, or
	// Unmeasured.
	ConnectLatency int32

	// StatusCode is the response status code, zero when not applicable.
	StatusCode uint16

	// RemoteAddr is the address of the remote side of the connection.
	RemoteAddr net.Addr `json:"-"`

	// LocalAddr is the address of the local side. For the downstream
	// transport of a proxy this is a VIP address.
	LocalAddr net.Addr `json:"-"`

	// ClientAddrOriginal is the original client address as reported by
	// an upstream proxy protocol, when the client connected through an
	// L4 proxy. It is distinct from LocalAddr and often absent.
	ClientAddrOriginal net.Addr `json:"-"`

	// Protocol carries protocol-specific telemetry attached by a higher
	// layer, at most one instance per record. Opaque to this package.
	Protocol ProtocolInfo `json:"-"`
}

// New returns a TransportInfo with every optional numeric field at its
// Unmeasured sentinel and every optional reference absent.
func New() *TransportInfo {
	return &TransportInfo{
		RTT:                   Unmeasured,
		RTTVar:                Unmeasured,
		Rtx:                   Unmeasured,
		RtxTimeouts:           Unmeasured,
		RTO:                   Unmeasured,
		Cwnd:                  Unmeasured,
		CwndBytes:             Unmeasured,
		MSS:                   Unmeasured,
		Ssthresh:              Unmeasured,
		MaxPacingRate:         Unmeasured,
		TimeToFirstHeaderByte: Unmeasured,
		TimeToFirstByte:       Unmeasured,
		TimeToLastByte:        Unmeasured,
		TimeToFirstByteTx:     Unmeasured,
		TimeToLastByteTx:      Unmeasured,
		TimeToLastBodyByteAck: Unmeasured,
		LastByteAckLatency:    Unmeasured,
		ProxyLatency:          Unmeasured,
		ClientLatency:         Unmeasured,
		ServerLatency:         Unmeasured,
		ConnectLatency:        Unmeasured,
	}
}

// RTTMs returns the smoothed RTT in milliseconds, truncated toward
// zero, or Unmeasured when the RTT has not been measured. An RTT that
// measured below one millisecond truncates to zero, which is distinct
// from Unmeasured.
func (ti *TransportInfo) RTTMs() int64 {
	if ti.RTT < 0 {
		return Unmeasured
	}
	return ti.RTT / 1000
}
