// Package tcp provides the TCP implementation of the RPC transport
// interfaces. It plugs TCP-specific dialing, listening and socket tuning
// (no-delay, keep-alive, linger, buffer sizes) into the shared framing and
// pooling logic of the base package.
package tcp
