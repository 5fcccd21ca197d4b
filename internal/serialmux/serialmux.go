// Package serialmux multiplexes one serial port across many readers and a
// single command writer. The radar's configuration UART is the primary
// user: command responses ("Done", errors, boot banners) fan out to every
// subscriber, while commands share the wire one at a time.
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tailscale.com/tsweb"
)

var ErrWriteFailed = errors.New("short write to serial port")

// commandAckTimeout bounds the wait for the device to acknowledge one
// configuration command.
const commandAckTimeout = 2 * time.Second

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind loses lines rather than blocking the mux.
const subscriberBuffer = 16

//go:embed templates/*
var adminTemplateFS embed.FS

var sendCommandTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-command.html.tmpl"))

// SerialMux is a generic serial port multiplexer that allows multiple clients
// to subscribe to events from a single serial port.
type SerialMux[T SerialPorter] struct {
	port         T
	subscriberMu sync.Mutex
	subscribers  map[string]chan string // nil once closed
	commandMu    sync.Mutex
}

// SerialMuxInterface is the mux surface consumers depend on, so the api
// server can run against a real, mock, or disabled mux interchangeably.
type SerialMuxInterface interface {
	// Subscribe registers a new line channel and returns it with the id
	// used to Unsubscribe it later. A mux that has been closed returns an
	// already-closed channel.
	Subscribe() (string, chan string)
	// Unsubscribe drops a subscriber and closes its channel.
	Unsubscribe(string)
	// SendCommand writes one command line to the serial port.
	SendCommand(string) error
	// Configure streams a sensor configuration to the device line by line,
	// waiting for each command's acknowledgement.
	Configure(context.Context, []string) error
	// Monitor reads port lines and fans them out to subscribers until the
	// context ends or the port read fails.
	Monitor(context.Context) error
	// Close closes every subscriber channel and then the port itself.
	Close() error

	// AttachAdminRoutes registers the /debug/ serial console endpoints
	// (command form, live line tail). tsweb limits them to debug-capable
	// clients.
	AttachAdminRoutes(*http.ServeMux)
}

// NewSerialMux wraps an already-open port. Call Monitor to start the
// read loop.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID returns an 8-byte hex subscriber id.
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if s.subscribers == nil {
		// Already closed; hand out a closed channel so readers never block.
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe drops the subscriber and closes its channel. Unknown ids
// are ignored.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// SendCommand writes one command line to the serial port, appending the
// newline terminator when missing.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Configure streams a sensor configuration to the device one command at a
// time. Blank lines and % comments are skipped. Each command must be
// acknowledged with a Done line before the next is sent; an error response
// from the device aborts the sequence. Monitor must already be running, as
// acknowledgements arrive through the subscription path.
func (s *SerialMux[T]) Configure(ctx context.Context, commands []string) error {
	id, ch := s.Subscribe()
	defer s.Unsubscribe(id)

	for _, raw := range commands {
		command := strings.TrimSpace(raw)
		if command == "" || strings.HasPrefix(command, "%") {
			continue
		}
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send config command %q: %w", command, err)
		}
		if err := awaitAck(ctx, ch, command); err != nil {
			return err
		}
	}
	return nil
}

// awaitAck consumes subscriber lines until the device acknowledges command,
// rejects it, or the timeout elapses. Echoes and banner lines pass through.
func awaitAck(ctx context.Context, ch chan string, command string) error {
	timer := time.NewTimer(commandAckTimeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return fmt.Errorf("serial mux closed while awaiting ack for %q", command)
			}
			switch ClassifyResponse(line) {
			case ResponseDone:
				return nil
			case ResponseError:
				return fmt.Errorf("device rejected %q: %s", command, strings.TrimSpace(line))
			}
		case <-timer.C:
			return fmt.Errorf("timed out waiting for ack of %q", command)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Monitor reads port lines and fans them out to subscribers until the
// context ends or the port read fails.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lines := make(chan string)
	scanErr := make(chan error, 1)

	// scan.Scan blocks inside the port read, so it runs in its own
	// goroutine; the select below stays responsive to ctx.
	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErr <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErr:
			return err

		case line, ok := <-lines:
			if !ok {
				// Scanner finished: port EOF, or error already surfaced.
				return scan.Err()
			}
			s.subscriberMu.Lock()
			if s.subscribers == nil {
				// Close ran; stop before the port read starts failing.
				s.subscriberMu.Unlock()
				return nil
			}
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
					// Subscriber buffer full; lose the line rather than
					// stall the fanout.
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.subscriberMu.Lock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.subscriberMu.Unlock()
	return s.port.Close()
}

// AttachAdminRoutes registers the serial console under /debug/: an HTML
// command form, a POST endpoint behind it, and an SSE tail of the port's
// output lines.
func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("send-command", "send a command to the radar config port", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := sendCommandTemplate.Execute(&buf, nil); err != nil {
			http.Error(w, "render command form: "+err.Error(), http.StatusInternalServerError)
			return
		}
		io.Copy(w, &buf)
	})

	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "empty command", http.StatusBadRequest)
			return
		}
		if err := s.SendCommand(command); err != nil {
			http.Error(w, "write command: "+err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "sent %q to the config port", command)
	})

	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "GET only", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		// Reverse proxies must not buffer the event stream.
		w.Header().Set("X-Accel-Buffering", "no")

		id, ch := s.Subscribe()
		defer s.Unsubscribe(id)

		// A comment line up front flushes the response headers to the
		// client before the first real port line arrives.
		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case line, ok := <-ch:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	debug.HandleSilentFunc("tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")

		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "tail.js missing from embedded assets", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}
