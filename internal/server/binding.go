package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/language-operator/language-operator-dashboard/internal/stream"
	"github.com/language-operator/language-operator-dashboard/internal/tenant"
	"github.com/language-operator/language-operator-dashboard/internal/watch"
)

// bind mounts the watch route for one resource kind. The wiring is
// identical for every kind: resolve tenant, build the scope, open the SSE
// stream, start the watch session, tie their lifetimes together.
func (s *Server) bind(r chi.Router, kind Kind) {
	r.Get("/api/v1/watch/"+kind.Path, s.handleWatch(kind))
}

func (s *Server) handleWatch(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.resolver.Resolve(r)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrUnauthorized):
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			case errors.Is(err, tenant.ErrForbidden):
				writeJSONError(w, http.StatusForbidden, "forbidden")
			default:
				s.logger.Error("tenant resolution failed", zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		selector := tenant.OrganizationSelector(t.Organization)
		if kind.Selector != nil {
			selector = kind.Selector(t.Organization)
		}
		scope := watch.Scope{
			Namespace:     tenant.OrganizationNamespace(t.Organization),
			LabelSelector: selector,
			GVR:           kind.GVR,
		}

		st, err := stream.New(w, r, stream.Options{
			HeartbeatInterval: s.opts.HeartbeatInterval,
			Logger:            s.logger,
		})
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		logger := s.logger.With(
			zap.String("kind", kind.Name),
			zap.String("organization", t.Organization),
			zap.String("stream_id", st.ID()),
		)
		logger.Info("watch stream opened", zap.String("user", t.User))

		sess, err := watch.StartSession(r.Context(), watch.SessionOptions{
			API:          s.api,
			Scope:        scope,
			Policy:       watch.Policy{Delay: s.opts.ReconnectDelay},
			ClientActive: st.IsActive,
			Handler:      forward(st, stream.NewTranslator(kind.Name), logger),
			Logger:       s.logger,
		})
		if err != nil {
			logger.Error("failed to start watch session", zap.Error(err))
			st.Close()
			return
		}
		st.OnCleanup(sess.Stop)

		<-st.Done()
		logger.Info("watch stream closed")
	}
}

// forward turns watch events into SSE writes. A failure handling one event
// is logged and that event dropped; the stream itself stays open.
func forward(st *stream.Stream, translator *stream.Translator, logger *zap.Logger) func(watch.Event) {
	return func(ev watch.Event) {
		switch ev.Type {
		case watch.Error:
			msg := "watch error"
			if ev.Err != nil {
				msg = ev.Err.Error()
			}
			if err := st.Send("error", stream.ErrorEvent{Message: msg, Timestamp: time.Now().UTC()}); err != nil {
				logger.Warn("failed to send error event", zap.Error(err))
			}
		case watch.Bookmark:
			// Advances the resumption position only; nothing to show.
		default:
			env, err := translator.Translate(ev)
			if err != nil {
				logger.Warn("dropping untranslatable event", zap.Error(err))
				return
			}
			if err := st.Send("resource-update", env); err != nil {
				logger.Warn("failed to send resource update", zap.Error(err))
			}
		}
	}
}
