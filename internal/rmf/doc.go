// Package rmf owns the RMF load protocol.
//
// Ownership boundary:
// - Cursor: bounded reads over the immutable document buffer
// - Tracer: nested, offset-stamped diagnostic trace
// - Loader: header validation and decoder orchestration
//
// Record-level grammar belongs to Decoder implementations; this package only
// knows the framing (version, magic, opaque body).
package rmf
