// Package meta defines the domain model of the dFS metadata service: the
// IMetaService interface with the full operation set (namespace mutation,
// block and lease management, delegation tokens, statistics), the data types
// exchanged by those operations, and the error taxonomy shared between the
// client and server sides.
//
// The package focuses on:
//   - A single interface contract implemented both by server-side stores and
//     by the client-side HA failover proxy
//   - Plain value types with JSON tags so every serializer can carry them
//   - Typed errors that let the HA proxy distinguish retryable placement
//     failures (StandbyError, FailoverError) from business errors
//
// Key Components:
//
//   - IMetaService: The metadata operation set. One implementation per
//     remote instance (rpc/client), one in-memory reference implementation
//     (lib/namespace), and the failover proxy itself.
//
//   - StandbyError / FailoverError: The two retryable error classes. A
//     StandbyError means a live instance reported it is not authoritative;
//     a FailoverError wraps a transport-level cause and means the instance
//     may be unreachable.
//
//   - RPCError: The terminal error surfaced once the configured failover
//     bound is exhausted, carrying the attempt count and original cause.
//
// Thread Safety:
//
//	All types in this package are plain values. Implementations of
//	IMetaService are expected to be safe for concurrent use.
package meta
