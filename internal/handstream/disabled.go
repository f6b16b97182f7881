package handstream

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/cutplane/internal/gesture"
)

// DisabledMux is a Source with no device behind it, used when the service
// runs without a hand stream (markers then arrive only through the API).
// It tracks subscribers so their channels close deterministically.
type DisabledMux struct {
	mu          sync.Mutex
	subscribers map[string]chan gesture.Sample
	closing     bool
	done        chan struct{}
}

var _ Source = (*DisabledMux)(nil)

// NewDisabledMux returns an idle Source.
func NewDisabledMux() *DisabledMux {
	return &DisabledMux{
		subscribers: make(map[string]chan gesture.Sample),
		done:        make(chan struct{}),
	}
}

func (d *DisabledMux) SetSink(chan<- gesture.Sample) {}

func (d *DisabledMux) Subscribe() (string, chan gesture.Sample) {
	id := uuid.NewString()
	ch := make(chan gesture.Sample)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		close(ch)
		return id, ch
	}
	d.subscribers[id] = ch
	return id, ch
}

func (d *DisabledMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

// Monitor blocks until ctx is done or Close is called.
func (d *DisabledMux) Monitor(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return nil
	}
}

func (d *DisabledMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	close(d.done)
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	return nil
}

func (d *DisabledMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/handstream-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hand stream disabled"))
	})
}
