// Package common contains the shared building blocks of the dFS RPC layer:
// the wire message structure with one factory per metadata operation, the
// client and server configuration structs, the wire error classification,
// and the logging setup.
//
// The package focuses on:
//   - A single Message struct used for both requests and responses, kept
//     serializer-agnostic (JSON tags for the JSON serializer, exported
//     fields for gob)
//   - Typed error transfer: EncodeError/DecodeError translate between Go
//     error values and the ErrCode carried on the wire, preserving the
//     standby classification the HA proxy depends on
//   - Configuration structs with human-readable String() output
//
// Key Components:
//
//   - Message/MessageType: The protocol vocabulary for the full metadata
//     operation set (namespace, block, lease, token and statistics calls).
//
//   - ClientConfig/ServerConfig: Plain configuration structs filled at the
//     CLI edge (viper/env) and passed down explicitly.
//
//   - InitLoggers/CreateLogger: Logging facade with uniform formatting for
//     all packages.
package common
