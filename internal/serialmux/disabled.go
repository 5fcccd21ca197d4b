package serialmux

import (
	"context"
	"net/http"
	"sync"
)

// DisabledSerialMux stands in for the command surface when no config port
// exists, such as when replaying recorded frames from a log file or pcap.
// The HTTP server and admin routes stay up; commands succeed without
// effect. Subscriber channels still close deterministically on Unsubscribe
// and Close so readers unblock during shutdown.
type DisabledSerialMux struct {
	mu   sync.Mutex
	subs map[string]chan string // nil once closed
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{subs: make(map[string]chan string)}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs == nil {
		// Already closed; hand out a closed channel so readers never block.
		close(ch)
		return id, ch
	}
	d.subs[id] = ch
	return id, ch
}

func (d *DisabledSerialMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subs[id]; ok {
		close(ch)
		delete(d.subs, id)
	}
}

// SendCommand accepts and discards the command.
func (d *DisabledSerialMux) SendCommand(string) error { return nil }

// Configure accepts the profile without sending it anywhere.
func (d *DisabledSerialMux) Configure(context.Context, []string) error { return nil }

// Monitor blocks until the context ends; there is no port to read.
func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *DisabledSerialMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.subs {
		close(ch)
	}
	d.subs = nil
	return nil
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/serial-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("serial mux disabled; frames come from a replay source"))
	})
}
