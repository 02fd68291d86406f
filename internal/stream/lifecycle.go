package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultHeartbeatInterval keeps intermediaries from reaping idle
// connections between events.
const DefaultHeartbeatInterval = 30 * time.Second

// Options configure a Stream.
type Options struct {
	// HeartbeatInterval between keep-alive comments. Default: 30s.
	HeartbeatInterval time.Duration

	// OnCleanup runs exactly once when the stream closes, regardless of
	// what closed it. Optional; more callbacks can be added later via
	// the OnCleanup method.
	OnCleanup func()

	// Logger for stream operations.
	Logger *zap.Logger
}

// Stream is one client's SSE connection. It is the single writer of the
// response and the single point that decides the stream is over.
type Stream struct {
	id     string
	logger *zap.Logger

	// writeMu serializes all writes to the response: events, heartbeats.
	writeMu sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher

	closed    chan struct{}
	closeOnce sync.Once

	cbMu      sync.Mutex
	cleanups  []func()
	closedSet bool
}

// New upgrades the response to an SSE stream and starts the heartbeat and
// client-abort watchers. Fails before any streaming begins if the
// underlying writer cannot flush.
func New(w http.ResponseWriter, r *http.Request, opts Options) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("stream: response writer does not support flushing")
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Stream{
		id:      uuid.NewString(),
		w:       w,
		flusher: flusher,
		closed:  make(chan struct{}),
	}
	s.logger = opts.Logger.Named("stream").With(zap.String("stream_id", s.id))
	if opts.OnCleanup != nil {
		s.cleanups = append(s.cleanups, opts.OnCleanup)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	connections.Inc()
	s.logger.Debug("stream opened")

	go s.watchAbort(r)
	go s.heartbeatLoop(opts.HeartbeatInterval)

	return s, nil
}

// ID returns the stream's unique identifier.
func (s *Stream) ID() string {
	return s.id
}

// IsActive reports whether the stream is still open.
func (s *Stream) IsActive() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

// Done is closed when the stream reaches its terminal state.
func (s *Stream) Done() <-chan struct{} {
	return s.closed
}

// OnCleanup registers fn to run when the stream closes. If the stream is
// already closed, fn runs immediately.
func (s *Stream) OnCleanup(fn func()) {
	s.cbMu.Lock()
	if s.closedSet {
		s.cbMu.Unlock()
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.cbMu.Unlock()
}

// Send writes one named SSE event with a JSON data payload. A no-op once
// the stream is closed. A marshal failure is returned to the caller and
// leaves the stream open; a transport failure closes the stream and is
// fatal to this stream only.
func (s *Stream) Send(name string, data any) error {
	if !s.IsActive() {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}

	s.writeMu.Lock()
	var writeErr error
	if s.IsActive() {
		if _, writeErr = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload); writeErr == nil {
			s.flusher.Flush()
			eventsTotal.WithLabelValues(name).Inc()
		}
	}
	s.writeMu.Unlock()

	// Close runs cleanup callbacks, so it must not hold the write lock.
	if writeErr != nil {
		s.logger.Debug("write failed, closing stream", zap.Error(writeErr))
		s.Close()
		return fmt.Errorf("write %s event: %w", name, writeErr)
	}
	return nil
}

// Close transitions the stream to its terminal state. The cleanup callbacks
// run exactly once across all close triggers. Safe to call multiple times.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.cbMu.Lock()
		s.closedSet = true
		cleanups := s.cleanups
		s.cleanups = nil
		s.cbMu.Unlock()

		close(s.closed)
		connections.Dec()

		for _, fn := range cleanups {
			fn()
		}
		s.logger.Debug("stream closed")
	})
}

// watchAbort closes the stream when the client disconnects.
func (s *Stream) watchAbort(r *http.Request) {
	select {
	case <-r.Context().Done():
		s.logger.Debug("client disconnected")
		s.Close()
	case <-s.closed:
	}
}

// heartbeatLoop writes a comment line on a fixed timer while the stream is
// open and stops immediately once it closes.
func (s *Stream) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			if !s.IsActive() {
				s.writeMu.Unlock()
				return
			}
			_, err := fmt.Fprint(s.w, ": heartbeat\n\n")
			if err == nil {
				s.flusher.Flush()
			}
			s.writeMu.Unlock()
			if err != nil {
				// Same as a client disconnect.
				s.logger.Debug("heartbeat write failed, closing stream", zap.Error(err))
				s.Close()
				return
			}
		}
	}
}
