package tcpinfox

import (
	"os"

	"github.com/m-lab/tcp-info/tcp"
	"golang.org/x/sys/unix"

	"github.com/m-lab/transportinfo"
)

// getTCPInfo reads struct tcp_connection_info, Darwin's same-purpose
// but differently-shaped equivalent of tcp_info, and normalizes it into
// the canonical shape so nothing outside this file ever sees the
// platform layout. Darwin reports times in milliseconds and the
// congestion window in bytes; the canonical shape wants microseconds
// and segments, so both are converted here.
func getTCPInfo(fp *os.File) (*tcp.LinuxTCPInfo, error) {
	ci, err := unix.GetsockoptTCPConnectionInfo(
		int(fp.Fd()), unix.IPPROTO_TCP, unix.TCP_CONNECTION_INFO)
	if err != nil {
		return nil, err
	}
	info := &tcp.LinuxTCPInfo{
		State:         ci.State,
		RTO:           ci.Rto * 1000,
		SndMSS:        ci.Maxseg,
		RcvMSS:        ci.Maxseg,
		RTT:           ci.Srtt * 1000,
		RTTVar:        ci.Rttvar * 1000,
		SndSsThresh:   ci.Snd_ssthresh,
		TotalRetrans:  uint32(ci.Txretransmitpackets),
		BytesSent:     int64(ci.Txbytes),
		BytesReceived: int64(ci.Rxbytes),
	}
	if ci.Maxseg > 0 {
		info.SndCwnd = ci.Snd_cwnd / ci.Maxseg
	}
	return info, nil
}

// TCP_CONGESTION and SO_MAX_PACING_RATE are Linux-only.

func getCongestionControl(*os.File) (string, error) {
	return "", ErrNoSupport
}

func getMaxPacingRate(*os.File) (int64, error) {
	return transportinfo.Unmeasured, ErrNoSupport
}

// copyScalars translates the normalized snapshot into the record's
// stable field set. RtxTimeouts stays at its sentinel: Darwin does not
// report timeout-caused retransmissions separately.
func copyScalars(ti *transportinfo.TransportInfo, info *tcp.LinuxTCPInfo) {
	ti.RTT = int64(info.RTT)
	ti.RTTVar = int64(info.RTTVar)
	ti.Rtx = int64(info.TotalRetrans)
	ti.RTO = int64(info.RTO)
	ti.MSS = int64(info.SndMSS)
	ti.Cwnd = int64(info.SndCwnd)
	ti.CwndBytes = int64(info.SndCwnd) * int64(info.SndMSS)
	ti.Ssthresh = int64(info.SndSsThresh)
}
