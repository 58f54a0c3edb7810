// Package server implements the RPC server for the dFS metadata service.
// It provides the adapter that translates wire messages into metadata
// operations, along with the core server implementation that owns the
// transport and serializer.
//
// The package focuses on:
//   - Server-side handling of every metadata RPC (namespace, block, lease
//     and token operations)
//   - Adapter pattern to decouple the metadata service from RPC mechanisms
//   - Uniform error encoding so clients can distinguish standby refusals
//     from business errors
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server
//     adapters, with the Handle method that processes incoming requests
//     against a meta.IMetaService.
//
//   - NewMetaServerAdapter: Factory function creating the adapter that
//     dispatches wire messages to metadata service calls.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified service, transport and serializer.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:      "0.0.0.0:8020",
//	  Role:          "active",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  namespace.NewStore(namespace.RoleActive),
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// High Availability:
//
//	A production deployment runs several servers over the same namespace,
//	exactly one of which is active. This package takes no part in leader
//	election; it serves whatever role the injected service reports. The
//	client-side HA proxy (rpc/client) interprets standby refusals and
//	fails over between the configured endpoints.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent
//	requests across multiple connections. Each request is processed
//	independently. The Serve method is not thread-safe and should be
//	called only once.
package server
