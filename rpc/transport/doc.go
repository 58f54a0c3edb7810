// Package transport defines the interfaces and abstractions for RPC
// communication between a metadata client endpoint handle and a metadata
// server instance. It provides a common contract that all transport
// implementations must fulfill, enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Binding each client transport to a single endpoint, leaving failover
//     between redundant endpoints to the HA proxy above
//   - Enabling multiple transport implementations (TCP, Unix sockets, HTTP)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport
//     implementations that manage the connection pool to one endpoint and
//     send framed requests.
//
//   - IRPCServerTransport: Interface for server-side transport
//     implementations that receive requests and pass them to the
//     registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
package transport
