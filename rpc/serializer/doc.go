// Package serializer provides pluggable encodings for RPC messages. Both
// the client and server side of a connection must be configured with the
// same serializer.
//
// Two implementations are available:
//
//   - NewJSONSerializer: human-readable, useful for debugging with network
//     tools, larger payloads
//
//   - NewGOBSerializer: Go's binary gob format, compact and fast, handles
//     the nested block/status structures of the metadata protocol without
//     extra code
//
// Both implementations are stateless and safe for concurrent use.
package serializer
