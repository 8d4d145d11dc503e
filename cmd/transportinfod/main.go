// transportinfod is a small demonstration daemon for the transportinfo
// packages. It serves two endpoints on every connection it accepts:
//
//	/snapshot  one-shot kernel telemetry for the requesting connection
//	/live      a websocket stream of periodic telemetry samples
//
// Both endpoints measure the caller's own connection, which makes the
// daemon handy for eyeballing what the kernel reports for a path
// without instrumenting an application.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/m-lab/transportinfo"
	"github.com/m-lab/transportinfo/logging"
	"github.com/m-lab/transportinfo/measurer"
	"github.com/m-lab/transportinfo/metrics"
	"github.com/m-lab/transportinfo/netx"
	"github.com/m-lab/transportinfo/redis"
)

var (
	listenAddr = flag.String("listen", ":8080", "Address to listen on.")
	redisAddr  = flag.String("redis", "", "Address of a redis server for snapshot archiving. Empty disables archiving.")
	streamTime = flag.Duration("stream_time", 30*time.Second, "Maximum duration of a /live stream.")

	// ctx is canceled to shut the daemon down; a variable so tests can
	// hook it.
	ctx, cancel = context.WithCancel(context.Background())
)

// connContextKey keys the accepted net.Conn in each request context.
type connContextKey struct{}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// requestConnInfo recovers the telemetry capability for the connection
// carrying r.
func requestConnInfo(r *http.Request) netx.ConnInfo {
	conn, ok := r.Context().Value(connContextKey{}).(net.Conn)
	if !ok {
		return nil
	}
	return netx.ToConnInfo(conn)
}

type snapshotHandler struct{}

func (snapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ci := requestConnInfo(r)
	if ci == nil {
		http.Error(w, "connection telemetry unavailable", http.StatusInternalServerError)
		return
	}
	ti := transportinfo.New()
	ti.AcceptTime = time.Now()
	ci.Probe(ti)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(measurer.Measurement{
		ConnectionInfo: &measurer.ConnectionInfo{
			Client: r.RemoteAddr,
			UUID:   ci.GetUUID(),
		},
		TransportInfo: ti,
	})
}

type liveHandler struct {
	archive *redis.Client
}

func (h liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ci := requestConnInfo(r)
	if ci == nil {
		http.Error(w, "connection telemetry unavailable", http.StatusInternalServerError)
		return
	}
	uuid := ci.GetUUID()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	m := measurer.New(conn, uuid)
	samples := m.Start(ctx, *streamTime)
	for sample := range samples {
		if err := conn.WriteJSON(sample); err != nil {
			logging.Logger.WithError(err).Debug("client went away")
			break
		}
	}
	m.Stop(samples)
	h.archiveFinal(ci, uuid)
}

// archiveFinal takes one last probe and stores it, when archiving is
// configured. Best-effort: the stream already served its purpose.
func (h liveHandler) archiveFinal(ci netx.ConnInfo, uuid string) {
	if h.archive == nil {
		return
	}
	ti := transportinfo.New()
	ci.Probe(ti)
	actx, acancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer acancel()
	if err := h.archive.SetTransportInfo(actx, uuid, ti); err != nil {
		metrics.ArchiveErrors.Inc()
		logging.Logger.WithError(err).WithField("uuid", uuid).Warn("snapshot archive failed")
	}
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from env")
	defer cancel()

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	var archive *redis.Client
	if *redisAddr != "" {
		archive = redis.NewClient(*redisAddr)
		defer archive.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/snapshot", snapshotHandler{})
	mux.Handle("/live", liveHandler{archive: archive})

	tcpl, err := net.Listen("tcp", *listenAddr)
	rtx.Must(err, "Could not listen on %s", *listenAddr)
	ln := netx.NewListener(tcpl.(*net.TCPListener))

	srv := &http.Server{
		Handler: logging.MakeAccessLogHandler(mux),
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			return context.WithValue(ctx, connContextKey{}, c)
		},
	}
	logging.Logger.WithField("addr", *listenAddr).Info("transportinfod listening")
	rtx.Must(srv.Serve(ln), "Server died")
}
