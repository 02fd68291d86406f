package watch

import "time"

// DefaultReconnectDelay is the fixed pause before a failed subscription is
// re-established. Long enough to avoid a tight loop, short enough that a
// dashboard never visibly stalls.
const DefaultReconnectDelay = 100 * time.Millisecond

// Decision is the outcome of a restart consultation.
type Decision struct {
	Restart bool
	Delay   time.Duration
}

// Policy centralizes whether and when a failed subscription restarts, so
// every resource kind shares one behavior. The zero value uses
// DefaultReconnectDelay.
type Policy struct {
	// Delay is the fixed pause before restarting.
	Delay time.Duration
}

// Decide returns the restart decision after a subscription failure.
// A session whose client is gone never restarts. Otherwise it restarts
// after the fixed delay regardless of the error: re-establishing a watch is
// cheap, and a missed transition is judged worse than a reconnect burst.
func (p Policy) Decide(clientActive bool, lastErr error) Decision {
	if !clientActive {
		return Decision{}
	}
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return Decision{Restart: true, Delay: delay}
}
