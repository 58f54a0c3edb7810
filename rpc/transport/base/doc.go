// Package base implements the transport-medium-independent parts of the RPC
// stream transports: request framing, the per-endpoint client connection
// pool with request/response correlation, and the server accept loop with a
// bounded per-connection worker pool.
//
// Concrete transports (tcp, unix) only supply connectors that know how to
// dial, listen and tune their specific socket type.
//
// The client side never retries a failed request: a send error is returned
// to the caller so the HA proxy can decide whether to fail over to another
// metadata instance.
package base
