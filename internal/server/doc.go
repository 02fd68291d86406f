// Package server mounts the per-resource-kind watch routes and wires the
// tenant resolver, watch session, translator, and SSE stream together.
//
// Every resource kind binds identically: one entry in the WatchKinds table
// yields one GET route, and adding a kind requires zero change to the
// watch, stream, or policy layers. Setup failures (missing or invalid
// session, no organization access) surface as JSON error bodies with 401
// or 403 before any streaming begins; once the SSE response is open, all
// backend failures are delivered in-band as "error" events.
package server
