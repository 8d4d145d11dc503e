// Package logging holds the shared logger for the transportinfo
// packages, set up to be friendly to containerized deployments.
package logging

import (
	golog "log"
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/gorilla/handlers"
)

// Logger logs structured JSON messages on the standard error, which is
// where dockerized services are expected to emit diagnostics.
var Logger = log.Logger{
	Handler: json.New(os.Stderr),
	Level:   log.InfoLevel,
}

// MakeAccessLogHandler wraps handler with access logging on the
// standard output. Access logs stay in the common log format rather
// than JSON because that format predates us and every log pipeline
// already parses it.
func MakeAccessLogHandler(handler http.Handler) http.Handler {
	return handlers.LoggingHandler(golog.Writer(), handler)
}
