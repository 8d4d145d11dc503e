package netx

import (
	"testing"

	"github.com/m-lab/transportinfo"
)

func TestProbe(t *testing.T) {
	conn, _, cleanup := acceptOne(t)
	defer cleanup()
	ci := ToConnInfo(conn)

	ti := transportinfo.New()
	if !ci.Probe(ti) {
		t.Fatal("Probe on an established conn = false, want true")
	}
	if !ti.ValidTCPInfo {
		t.Error("ValidTCPInfo = false after successful probe")
	}
	if ti.LocalAddr == nil || ti.RemoteAddr == nil {
		t.Error("Probe did not stamp the connection addresses")
	}
	if ti.LocalAddr.String() != conn.(*Conn).Conn.LocalAddr().String() {
		t.Errorf("LocalAddr = %v, want %v", ti.LocalAddr, conn.(*Conn).Conn.LocalAddr())
	}

	// Already-stamped addresses are left alone.
	prior := ti.RemoteAddr
	if !ci.Probe(ti) {
		t.Fatal("re-probe failed")
	}
	if ti.RemoteAddr != prior {
		t.Error("re-probe replaced an already-set address")
	}
}

func TestEnableBBR(t *testing.T) {
	conn, _, cleanup := acceptOne(t)
	defer cleanup()
	ci := ToConnInfo(conn)
	if err := ci.EnableBBR(); err != nil {
		t.Skipf("BBR not available on this host: %v", err)
	}
	if _, err := ci.ReadBBRInfo(); err != nil {
		t.Errorf("ReadBBRInfo failed after EnableBBR: %v", err)
	}
}
