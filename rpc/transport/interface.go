package transport

import (
	"github.com/dfslabs/dfs/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a request as a parameter and returns a response
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC server transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called once per received request
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves incoming requests until
	// Shutdown is called. It returns nil after a clean shutdown.
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting new connections and unblocks Listen
	Shutdown() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
//
// A client transport is bound to exactly one endpoint: redundancy between
// endpoints is owned by the HA proxy in rpc/client, which holds one
// transport per metadata instance. A transport therefore never retries a
// request on its own; a failed send is reported to the caller so the proxy
// can make the placement decision.
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration and
	// establishes the connection pool to the endpoint
	Connect(config common.ClientConfig, endpoint string) error
	// Send sends a request to the endpoint and returns the response
	Send(req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}

// ClientFactory creates an unconnected client transport. It is used where
// one transport per endpoint must be built from a single configuration
// choice (e.g. "tcp" or "unix").
type ClientFactory func() IRPCClientTransport
