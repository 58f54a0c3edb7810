// Package http provides an HTTP implementation of the RPC transport
// interfaces, mapping each RPC request to one POST. It trades the framing
// and connection pooling of the stream transports for easy debugging and
// proxy friendliness.
package http
