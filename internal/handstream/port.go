package handstream

import (
	"context"
	"io"
	"net/http"

	"github.com/banshee-data/cutplane/internal/gesture"
)

// Porter is the minimal interface of a line-oriented sample source: a serial
// port, a replay file or a test pipe.
type Porter interface {
	io.Reader
	io.Closer
}

// Source is implemented by Mux and DisabledMux.
type Source interface {
	// SetSink registers the channel that receives every parsed sample with
	// backpressure. It must be called before Monitor.
	SetSink(chan<- gesture.Sample)
	// Subscribe creates a best-effort channel of parsed samples; slow
	// subscribers miss samples.
	Subscribe() (string, chan gesture.Sample)
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(string)
	// Monitor reads lines until the source ends, ctx is done or Close is
	// called.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying port.
	Close() error
	// AttachAdminRoutes mounts debug endpoints under /debug/.
	AttachAdminRoutes(*http.ServeMux)
}
