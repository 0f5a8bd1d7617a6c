// Package diagnostics is the append-only echo channel of gridctl.
//
// Every line echoed by the controller is logged, kept in a bounded ring
// buffer for the status API and fanned out to live subscribers such as the
// WebSocket stream. Nothing is persisted.
package diagnostics
