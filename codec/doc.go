// Package codec defines the contract between the bridge and an Opus codec
// engine.
//
// The bridge never does signal processing itself. An Engine hands out
// Encoder and Decoder instances that each own native state; the bridge
// holds each instance exclusively and frees it exactly once.
//
// The caller-facing integer conventions live here too: application mode
// codes (ApplicationFromCode) and bitrate sentinels and clamping
// (BitrateFromCode).
package codec
