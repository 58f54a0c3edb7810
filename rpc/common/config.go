package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared socket configuration
// --------------------------------------------------------------------------

// SocketConf holds buffer settings shared by all stream transports.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP-specific socket settings.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for a metadata client.
// Endpoints lists the redundant metadata service instances; the HA proxy
// owns failover between them, so MaxHARetry bounds proxy-level failovers,
// not transport-level send attempts.
type ClientConfig struct {
	// Endpoints is the ordered host:port list of all metadata instances
	Endpoints []string

	// MaxHARetry bounds how many failovers a single call may trigger.
	// Ignored (forced to 0) when only one endpoint is configured.
	MaxHARetry int

	// TimeoutSecond is the per-request transport timeout
	TimeoutSecond int

	// ConnectionsPerEndpoint sets the connection pool size per instance
	ConnectionsPerEndpoint int

	Socket SocketConf
	TCP    TCPConf
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max HA Retry", strconv.Itoa(c.MaxHARetry))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.ConnectionsPerEndpoint)))

	addSection("Metadata Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a metadata server
// instance.
type ServerConfig struct {
	// Endpoint is the address the server transport listens on
	Endpoint string

	// Role is the initial HA role of the instance ("active" or "standby")
	Role string

	// TimeoutSecond is the per-connection read/write timeout
	TimeoutSecond int

	// WorkersPerConn bounds concurrent request workers per connection
	WorkersPerConn int

	// Logging configuration
	LogLevel string

	Socket SocketConf
	TCP    TCPConf
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Metadata Server")
	addField("Endpoint", c.Endpoint)
	addField("HA Role", c.Role)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Connection", strconv.Itoa(c.WorkersPerConn))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
