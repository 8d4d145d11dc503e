package bbr

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/m-lab/tcp-info/inetdiag"
	"golang.org/x/sys/unix"
)

// tcpBBRInfo mirrors struct tcp_bbr_info from linux/inet_diag.h. The
// kernel reports bandwidth as two 32-bit halves.
type tcpBBRInfo struct {
	bwLo       uint32
	bwHi       uint32
	minRTT     uint32
	pacingGain uint32
	cwndGain   uint32
}

func enableBBR(fp *os.File) error {
	return unix.SetsockoptString(int(fp.Fd()), unix.IPPROTO_TCP,
		unix.TCP_CONGESTION, "bbr")
}

func getBBRInfo(fp *os.File) (inetdiag.BBRInfo, error) {
	// union tcp_cc_info; tcp_bbr_info is currently the only variant to
	// occupy five 32-bit words, so a shorter reply means the socket is
	// running some other algorithm.
	cc := tcpBBRInfo{}
	ccLen := uint32(unsafe.Sizeof(cc))
	_, _, errno := syscall.Syscall6(
		uintptr(syscall.SYS_GETSOCKOPT),
		fp.Fd(),
		uintptr(unix.IPPROTO_TCP),
		uintptr(unix.TCP_CC_INFO),
		uintptr(unsafe.Pointer(&cc)),
		uintptr(unsafe.Pointer(&ccLen)),
		uintptr(0))
	if errno != 0 {
		return inetdiag.BBRInfo{}, errno
	}
	if ccLen != uint32(unsafe.Sizeof(cc)) {
		return inetdiag.BBRInfo{}, ErrNotBBR
	}
	return inetdiag.BBRInfo{
		BW:         int64(cc.bwHi)<<32 | int64(cc.bwLo),
		MinRTT:     cc.minRTT,
		PacingGain: cc.pacingGain,
		CwndGain:   cc.cwndGain,
	}, nil
}
