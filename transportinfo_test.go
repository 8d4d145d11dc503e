package transportinfo

import (
	"net"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	ti := New()
	sentinels := map[string]int64{
		"RTT":           ti.RTT,
		"RTTVar":        ti.RTTVar,
		"Rtx":           ti.Rtx,
		"RtxTimeouts":   ti.RtxTimeouts,
		"RTO":           ti.RTO,
		"Cwnd":          ti.Cwnd,
		"CwndBytes":     ti.CwndBytes,
		"MSS":           ti.MSS,
		"Ssthresh":      ti.Ssthresh,
		"MaxPacingRate": ti.MaxPacingRate,
	}
	for name, v := range sentinels {
		if v != Unmeasured {
			t.Errorf("New().%s = %d, want Unmeasured", name, v)
		}
	}
	latencies := map[string]int32{
		"TimeToFirstHeaderByte": ti.TimeToFirstHeaderByte,
		"TimeToFirstByte":       ti.TimeToFirstByte,
		"TimeToLastByte":        ti.TimeToLastByte,
		"TimeToFirstByteTx":     ti.TimeToFirstByteTx,
		"TimeToLastByteTx":      ti.TimeToLastByteTx,
		"TimeToLastBodyByteAck": ti.TimeToLastBodyByteAck,
		"LastByteAckLatency":    ti.LastByteAckLatency,
		"ProxyLatency":          ti.ProxyLatency,
		"ClientLatency":         ti.ClientLatency,
		"ServerLatency":         ti.ServerLatency,
		"ConnectLatency":        ti.ConnectLatency,
	}
	for name, v := range latencies {
		if v != Unmeasured {
			t.Errorf("New().%s = %d, want Unmeasured", name, v)
		}
	}
	if ti.ValidTCPInfo {
		t.Error("New().ValidTCPInfo = true, want false")
	}
	if ti.TCPInfoErrno != 0 {
		t.Errorf("New().TCPInfoErrno = %d, want 0", ti.TCPInfoErrno)
	}
	if ti.Secure || ti.TFOSucceeded {
		t.Error("New() security booleans should be false")
	}
	if ti.TLSResume != ResumeNA {
		t.Errorf("New().TLSResume = %v, want ResumeNA", ti.TLSResume)
	}
	if ti.TLSCipher != nil || ti.TLSServerName != nil || ti.TokenBindingParam != nil ||
		ti.FirstBodyByteOffset != nil || ti.LastBodyByteOffset != nil {
		t.Error("New() optional references should be absent")
	}
	if ti.RemoteAddr != nil || ti.LocalAddr != nil || ti.ClientAddrOriginal != nil {
		t.Error("New() addresses should be absent")
	}
	if ti.Protocol != nil {
		t.Error("New().Protocol should be absent")
	}
	if ti.RTTMs() != Unmeasured {
		t.Errorf("New().RTTMs() = %d, want Unmeasured", ti.RTTMs())
	}
}

func TestRTTMsTruncates(t *testing.T) {
	tests := []struct {
		rtt  int64
		want int64
	}{
		{Unmeasured, Unmeasured},
		{0, 0},
		{999, 0},
		{1000, 1},
		{1500, 1},
		{2500, 2},
	}
	for _, tt := range tests {
		ti := New()
		ti.RTT = tt.rtt
		if got := ti.RTTMs(); got != tt.want {
			t.Errorf("RTTMs() with RTT=%d = %d, want %d", tt.rtt, got, tt.want)
		}
	}
}

func TestHeaderSize(t *testing.T) {
	hs := HeaderSize{
		Compressed:      130,
		Uncompressed:    275,
		CompressedBlock: 100,
	}
	if hs.Compressed != 130 || hs.Uncompressed != 275 || hs.CompressedBlock != 100 {
		t.Errorf("HeaderSize did not store the given counts: %+v", hs)
	}
	if overhead := hs.Compressed - hs.CompressedBlock; overhead != 30 {
		t.Errorf("control overhead = %d, want 30", overhead)
	}
	ti := New()
	ti.IngressHeader = hs
	if ti.IngressHeader != hs || ti.EgressHeader != (HeaderSize{}) {
		t.Error("per-direction header sizes should be independent")
	}
}

// muxInfo stands in for the protocol-specific telemetry a multiplexed
// transport would attach.
type muxInfo struct {
	Streams int
}

func TestProtocolInfoIdentity(t *testing.T) {
	ti := New()
	attached := &muxInfo{Streams: 7}
	ti.Protocol = attached
	got, ok := ti.Protocol.(*muxInfo)
	if !ok {
		t.Fatalf("Protocol lost its concrete type: %T", ti.Protocol)
	}
	if got != attached {
		t.Error("Protocol should preserve the attached instance's identity")
	}
}

func TestSharedStringReplacement(t *testing.T) {
	ti := New()
	cipher := "TLS_AES_128_GCM_SHA256"
	ti.TLSCipher = &cipher
	shared := ti.TLSCipher

	// New values replace the shared reference; readers of the old one
	// are unaffected.
	updated := "TLS_CHACHA20_POLY1305_SHA256"
	ti.TLSCipher = &updated
	if *shared != "TLS_AES_128_GCM_SHA256" {
		t.Error("replacing a shared string mutated the prior reference")
	}
}

func TestAddressSharing(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 443}
	first := New()
	second := New()
	first.RemoteAddr = addr
	second.RemoteAddr = addr
	if first.RemoteAddr != second.RemoteAddr {
		t.Error("two records should be able to share one address value")
	}
}
