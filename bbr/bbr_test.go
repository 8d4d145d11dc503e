package bbr

import (
	"os"
	"testing"

	"github.com/m-lab/go/rtx"
)

// A pipe is not a TCP socket, so both operations must fail cleanly on
// every platform.
func TestNonSocketFails(t *testing.T) {
	r, w, err := os.Pipe()
	rtx.Must(err, "could not create pipe")
	defer r.Close()
	defer w.Close()

	if err := Enable(w); err == nil {
		t.Error("Enable(pipe) succeeded, want error")
	}
	if _, err := GetBBRInfo(w); err == nil {
		t.Error("GetBBRInfo(pipe) succeeded, want error")
	}
}
