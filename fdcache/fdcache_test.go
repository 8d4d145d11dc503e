package fdcache

import (
	"net"
	"os"
	"testing"

	"github.com/m-lab/go/rtx"
)

func pipeFile(t *testing.T) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	rtx.Must(err, "could not create pipe")
	t.Cleanup(func() { r.Close() })
	return w
}

func TestOwnAndWithdraw(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	fp := pipeFile(t)

	OwnFile(client, fp)
	got := GetAndForgetFile(client)
	if got != fp {
		t.Errorf("GetAndForgetFile returned %v, want the deposited file", got)
	}
	got.Close()

	// Withdrawal is exactly-once.
	if again := GetAndForgetFile(client); again != nil {
		t.Errorf("second withdrawal returned %v, want nil", again)
	}
}

func TestWithdrawUnknownConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	if fp := GetAndForgetFile(client); fp != nil {
		t.Errorf("withdrawal for unknown conn returned %v, want nil", fp)
	}
}

func TestOwnFileNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("OwnFile(nil) did not panic")
		}
	}()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	OwnFile(client, nil)
}

func TestTCPConnToFile(t *testing.T) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{})
	rtx.Must(err, "could not listen")
	defer ln.Close()
	client, err := net.Dial("tcp", ln.Addr().String())
	rtx.Must(err, "could not dial")
	defer client.Close()
	server, err := ln.AcceptTCP()
	rtx.Must(err, "could not accept")
	defer server.Close()

	fp, err := TCPConnToFile(server)
	if err != nil {
		t.Fatalf("TCPConnToFile failed: %v", err)
	}
	defer fp.Close()

	// The file is a dup: closing it must not kill the conn.
	fp2, err := TCPConnToFile(server)
	rtx.Must(err, "could not dup a second time")
	fp2.Close()
	if _, err := server.Write([]byte("x")); err != nil {
		t.Errorf("conn unusable after closing its dup: %v", err)
	}
}
