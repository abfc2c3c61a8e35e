// Package pipeline orchestrates well discovery, per-well stitching, and
// batch summary reporting.
//
// Run processes wells strictly in plate order and stops at the first
// failure, so a finished run means every discovered well was written.
// Plane stacks are scoped to one well at a time, which keeps peak memory
// near a single fused stack. Inspect is the read-only counterpart: it
// audits tile coverage against the configured grid without decoding any
// pixel data.
package pipeline
