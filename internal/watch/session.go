package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	k8swatch "k8s.io/apimachinery/pkg/watch"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	// API is the control-plane watch boundary. Required.
	API API

	// Scope fixes the watched resource collection. Immutable for the
	// session's lifetime.
	Scope Scope

	// Policy governs restarts. The zero value restarts after
	// DefaultReconnectDelay while the client is active.
	Policy Policy

	// ClientActive reports whether the owning client stream still wants
	// events. A session never restarts once this returns false. Defaults
	// to always-active.
	ClientActive func() bool

	// Handler receives every event, including Error events. Required.
	// Invoked from a single goroutine in control-plane emission order,
	// never concurrently.
	Handler func(Event)

	// Logger for session operations.
	Logger *zap.Logger
}

// Session owns one live subscription per (resource kind, scope) and
// re-establishes it transparently after every natural close or error.
// Backend failures are surfaced to the handler as Error events; they are
// never terminal while the owning client is active.
type Session struct {
	id     string
	opts   SessionOptions
	logger *zap.Logger

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}

	// stopped gates handler invocations so that no new callback begins
	// once Stop returns. Checked lock-free: Stop is invoked from stream
	// cleanup, which may itself run inside a handler callback.
	stopped atomic.Bool

	mu           sync.RWMutex
	lastPosition string
	resync       bool
}

// StartSession begins delivering events for the scope. The returned session
// keeps the subscription alive until Stop is called, the context is
// cancelled, or ClientActive reports false.
func StartSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.API == nil {
		return nil, errors.New("watch: API is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("watch: Handler is required")
	}
	if opts.ClientActive == nil {
		opts.ClientActive = func() bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:     uuid.NewString(),
		opts:   opts,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.logger = opts.Logger.Named("watch").With(
		zap.String("session_id", s.id),
		zap.String("scope", opts.Scope.String()),
	)

	go s.run(ctx)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Stop cancels the subscription. Once Stop returns, no new handler
// callbacks begin; an in-flight network call may still complete but its
// result is discarded. Safe to call multiple times, including from a
// stream cleanup callback.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.cancel()
	})
}

// Done is closed once the session's subscription loop has fully exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LastPosition returns the most recently observed resumption position.
func (s *Session) LastPosition() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPosition
}

// run is the subscription state machine. An explicit loop rather than a
// self-restarting callback keeps the call stack flat under sustained
// reconnect sequences.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil || !s.opts.ClientActive() {
			return
		}
		if attempt > 0 {
			reconnectsTotal.WithLabelValues(s.opts.Scope.GVR.Resource).Inc()
		}

		w, err := s.opts.API.Watch(ctx, s.opts.Scope, s.LastPosition())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.recover(ctx, err) {
				return
			}
			continue
		}

		err = s.consume(ctx, w)
		w.Stop()
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Natural close: re-establish at the last position without
			// bothering the client.
			s.logger.Debug("watch closed, re-establishing")
			continue
		}
		if !s.recover(ctx, err) {
			return
		}
	}
}

// consume drains one subscription. Returns nil on natural close or
// cancellation, the backend failure otherwise.
func (s *Session) consume(ctx context.Context, w k8swatch.Interface) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.ResultChan():
			if !ok {
				return nil
			}
			switch ev.Type {
			case k8swatch.Added, k8swatch.Modified, k8swatch.Deleted:
				obj, ok := ev.Object.(*unstructured.Unstructured)
				if !ok {
					s.logger.Warn("unexpected object type in watch event",
						zap.String("event_type", string(ev.Type)))
					continue
				}
				pos := obj.GetResourceVersion()
				s.advance(pos)
				s.emit(Event{
					Type:     eventTypeOf(ev.Type),
					Object:   obj,
					Position: pos,
					Resync:   s.resyncing(),
				})
			case k8swatch.Bookmark:
				pos := s.LastPosition()
				if obj, ok := ev.Object.(*unstructured.Unstructured); ok {
					pos = obj.GetResourceVersion()
					s.advance(pos)
				}
				// A bookmark marks the end of any resync replay.
				s.clearResync()
				s.emit(Event{Type: Bookmark, Position: pos})
			case k8swatch.Error:
				return apierrors.FromObject(ev.Object)
			}
		}
	}
}

// recover surfaces err to the client as a visible Error event and decides
// whether to restart. Returns false when the session must end.
func (s *Session) recover(ctx context.Context, err error) bool {
	if IsCompacted(err) {
		compactionsTotal.WithLabelValues(s.opts.Scope.GVR.Resource).Inc()
		s.mu.Lock()
		s.lastPosition = ""
		s.resync = true
		s.mu.Unlock()
		s.logger.Warn("resumption position compacted, forcing full resync", zap.Error(err))
	} else {
		s.logger.Warn("watch failed", zap.Error(err))
	}

	active := s.opts.ClientActive()
	d := s.opts.Policy.Decide(active, err)
	if active {
		// Degraded but alive: the client sees the failure without the
		// stream ending.
		s.emit(Event{Type: Error, Position: s.LastPosition(), Err: err})
	}
	if !d.Restart {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d.Delay):
	}
	// The client may have gone away during the delay.
	return s.opts.ClientActive()
}

func (s *Session) emit(ev Event) {
	if s.stopped.Load() {
		return
	}
	s.opts.Handler(ev)
}

func (s *Session) advance(pos string) {
	if pos == "" {
		return
	}
	s.mu.Lock()
	s.lastPosition = pos
	s.mu.Unlock()
}

func (s *Session) resyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resync
}

func (s *Session) clearResync() {
	s.mu.Lock()
	s.resync = false
	s.mu.Unlock()
}

func eventTypeOf(t k8swatch.EventType) EventType {
	switch t {
	case k8swatch.Added:
		return Added
	case k8swatch.Modified:
		return Modified
	case k8swatch.Deleted:
		return Deleted
	case k8swatch.Bookmark:
		return Bookmark
	default:
		return Error
	}
}
