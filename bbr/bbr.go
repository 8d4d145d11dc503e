// Package bbr reads BBR congestion-control state for a connection on
// which it has been enabled. This only works on Linux, where BBR lives;
// elsewhere every operation returns ErrNoSupport.
package bbr

import (
	"errors"
	"os"

	"github.com/m-lab/tcp-info/inetdiag"
)

// ErrNoSupport indicates that this system does not support BBR.
var ErrNoSupport = errors.New("TCP_CC_INFO not supported on this platform")

// ErrNotBBR indicates that the socket is not using the BBR congestion
// control algorithm, so TCP_CC_INFO returned some other variant.
var ErrNotBBR = errors.New("socket is not using BBR")

// Enable switches fp's congestion control algorithm to BBR.
func Enable(fp *os.File) error {
	if fp == nil {
		return os.ErrInvalid
	}
	return enableBBR(fp)
}

// GetBBRInfo reads the BBR state for fp: the max-filtered bandwidth
// estimate in bytes per second and the min-filtered RTT in
// microseconds.
func GetBBRInfo(fp *os.File) (inetdiag.BBRInfo, error) {
	if fp == nil {
		return inetdiag.BBRInfo{}, os.ErrInvalid
	}
	return getBBRInfo(fp)
}
