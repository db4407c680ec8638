// Package session pairs one codec engine instance with the sizing
// parameters fixed at construction.
//
// A Decoder owns an engine decoder and a frame size; every decode allocates
// frame size x channels samples and returns exactly what the engine
// produced. An Encoder owns an engine encoder and an MTU; every encode
// returns at most MTU bytes.
//
// Sessions move from open to closed exactly once. Close frees the engine
// instance; any later call, including a second Close, fails with a state
// error. Sessions are not safe for concurrent use on their own; the bridge
// serializes calls per handle.
package session
