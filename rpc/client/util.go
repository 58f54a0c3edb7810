package client

import (
	"fmt"
	"sync"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
	"github.com/dfslabs/dfs/rpc/serializer"
	"github.com/dfslabs/dfs/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// remoteMeta is the IMetaService implementation for a single metadata
// instance. It serializes requests, sends them over its transport and maps
// response errors back to typed errors.
//
// Connection establishment is lazy: a standby instance may be down when the
// client is constructed, and must not prevent the HA proxy from coming up.
type remoteMeta struct {
	addr       string
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	auth       *meta.Credentials

	mu        sync.Mutex
	connected bool
	closed    bool
}

// newRemoteMeta creates an unconnected client for one metadata instance
func newRemoteMeta(
	addr string,
	config common.ClientConfig,
	factory transport.ClientFactory,
	serializer serializer.IRPCSerializer,
	auth *meta.Credentials,
) *remoteMeta {
	return &remoteMeta{
		addr:       addr,
		config:     config,
		transport:  factory(),
		serializer: serializer,
		auth:       auth,
	}
}

// invoke sends a request to this instance and returns the decoded response.
// Transport-level failures are wrapped in a FailoverError carrying the
// underlying cause; wire-level standby rejections come back as StandbyError.
// Everything else is returned as-is.
func (c *remoteMeta) invoke(req *common.Message) (*common.Message, error) {
	// Attach the pass-through credentials
	req.Auth = c.auth

	// Serialize the request
	reqBytes, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Connect on first use (or after a transport failure)
	if err := c.ensureConnected(); err != nil {
		return nil, &meta.FailoverError{Addr: c.addr, Cause: err}
	}

	// Send the request
	respBytes, err := c.transport.Send(reqBytes)
	if err != nil {
		// Force a fresh dial on the next attempt against this instance
		c.markDisconnected()
		return nil, &meta.FailoverError{Addr: c.addr, Cause: err}
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := c.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("metadata client %s: malformed response: %v", c.addr, err)
	}

	// Check if the response is an error response
	if err := common.DecodeError(resp, c.addr); err != nil {
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("metadata client %s: unexpected message type: %s, expected %s",
			c.addr, resp.MsgType, req.MsgType)
	}

	// Return the response
	return resp, nil
}

// ensureConnected dials the instance if no usable connection pool exists
func (c *remoteMeta) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return meta.ErrClosed
	}
	if c.connected {
		return nil
	}
	if err := c.transport.Connect(c.config, c.addr); err != nil {
		return err
	}
	c.connected = true
	return nil
}

// markDisconnected drops the connection pool after a transport failure
func (c *remoteMeta) markDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}
	c.connected = false
	if err := c.transport.Close(); err != nil {
		Logger.Warningf("Failed to close transport to %s: %v", c.addr, err)
	}
}

// Close shuts down the transport. Implements meta.IMetaService.
func (c *remoteMeta) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.transport.Close()
}
