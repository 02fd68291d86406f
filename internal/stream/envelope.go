package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/language-operator/language-operator-dashboard/internal/watch"
)

// Envelope is the client-facing form of one watch event, delivered as the
// data of a "resource-update" SSE event.
type Envelope struct {
	Type         string          `json:"type"`
	ResourceKind string          `json:"resourceKind"`
	Data         json.RawMessage `json:"data,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Position     string          `json:"position,omitempty"`
	Resync       bool            `json:"resync,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ErrorEvent is the data of an "error" SSE event: a backend failure the
// session recovered from, surfaced so the client knows it is degraded but
// alive.
type ErrorEvent struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Translator derives Envelopes from watch events for one resource kind.
// Pure and side-effect-free: one event in, one envelope out, in order.
type Translator struct {
	kind string
	now  func() time.Time
}

// NewTranslator creates a Translator for the given client-facing resource
// kind (singular, e.g. "agent").
func NewTranslator(kind string) *Translator {
	return &Translator{kind: kind, now: time.Now}
}

// Translate maps one watch event to an Envelope.
func (t *Translator) Translate(ev watch.Event) (Envelope, error) {
	env := Envelope{
		Type:         string(ev.Type),
		ResourceKind: t.kind,
		Timestamp:    t.now().UTC(),
		Position:     ev.Position,
		Resync:       ev.Resync,
	}

	if ev.Type == watch.Error {
		if ev.Err != nil {
			env.Error = ev.Err.Error()
		}
		return env, nil
	}

	if ev.Object != nil {
		data, err := json.Marshal(ev.Object.Object)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s object: %w", t.kind, err)
		}
		env.Data = data
	}
	return env, nil
}
