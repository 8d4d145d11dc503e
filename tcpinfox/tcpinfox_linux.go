package tcpinfox

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/m-lab/tcp-info/tcp"
	"golang.org/x/sys/unix"

	"github.com/m-lab/transportinfo"
)

// getTCPInfo reads struct tcp_info for fp. The kernel may return fewer
// bytes than we asked for (older kernels know fewer fields); the
// trailing fields stay zero in that case, which is fine because the
// caller treats the struct as a snapshot of whatever the kernel knows.
func getTCPInfo(fp *os.File) (*tcp.LinuxTCPInfo, error) {
	// Note: Fd() returns uintptr but on Unix a socket fits in an int.
	info := tcp.LinuxTCPInfo{}
	infoLen := uint32(unsafe.Sizeof(info))
	_, _, errno := syscall.Syscall6(
		uintptr(syscall.SYS_GETSOCKOPT),
		fp.Fd(),
		uintptr(syscall.SOL_TCP),
		uintptr(syscall.TCP_INFO),
		uintptr(unsafe.Pointer(&info)),
		uintptr(unsafe.Pointer(&infoLen)),
		uintptr(0))
	if errno != 0 {
		return nil, errno
	}
	return &info, nil
}

func getCongestionControl(fp *os.File) (string, error) {
	return unix.GetsockoptString(int(fp.Fd()), unix.IPPROTO_TCP, unix.TCP_CONGESTION)
}

func getMaxPacingRate(fp *os.File) (int64, error) {
	rate, err := unix.GetsockoptInt(int(fp.Fd()), unix.SOL_SOCKET, unix.SO_MAX_PACING_RATE)
	if err != nil {
		return transportinfo.Unmeasured, err
	}
	return int64(uint32(rate)), nil
}

// copyScalars translates the platform snapshot into the record's stable
// field set. On Linux the canonical shape is the native one, so this is
// a direct copy; units are microseconds throughout.
func copyScalars(ti *transportinfo.TransportInfo, info *tcp.LinuxTCPInfo) {
	ti.RTT = int64(info.RTT)
	ti.RTTVar = int64(info.RTTVar)
	ti.Rtx = int64(info.TotalRetrans)
	ti.RtxTimeouts = int64(info.Retransmits)
	ti.RTO = int64(info.RTO)
	ti.MSS = int64(info.SndMSS)
	ti.Cwnd = int64(info.SndCwnd)
	ti.CwndBytes = int64(info.SndCwnd) * int64(info.SndMSS)
	ti.Ssthresh = int64(info.SndSsThresh)
}
