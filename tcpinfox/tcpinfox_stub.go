//go:build !linux && !darwin

package tcpinfox

import (
	"os"

	"github.com/m-lab/tcp-info/tcp"

	"github.com/m-lab/transportinfo"
)

func getTCPInfo(*os.File) (*tcp.LinuxTCPInfo, error) {
	return nil, ErrNoSupport
}

func getCongestionControl(*os.File) (string, error) {
	return "", ErrNoSupport
}

func getMaxPacingRate(*os.File) (int64, error) {
	return transportinfo.Unmeasured, ErrNoSupport
}

func copyScalars(*transportinfo.TransportInfo, *tcp.LinuxTCPInfo) {
	// Unreachable: getTCPInfo never succeeds here.
}
