// Package inspect runs one RMF load end to end for rmfctl.
//
// Ownership boundary:
// - source acquisition and decoder resolution
// - trace sink selection (console, zerolog, CBOR record)
// - metrics and the operational load log
// - the Report handed back to the CLI
package inspect
