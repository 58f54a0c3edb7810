package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
	"github.com/dfslabs/dfs/rpc/serializer"
	"github.com/dfslabs/dfs/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// NewRPCServer creates a new metadata RPC server serving the given service
// It takes a config, service, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		namespace.NewStore(namespace.RoleActive),
//		tcp.NewTCPServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	svc meta.IMetaService,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		svc:        svc,
		adapter:    NewMetaServerAdapter(),
		transport:  transport,
		serializer: serializer,
	}
}

// RPCServer serves a single metadata service instance over one transport.
// Which HA role the instance plays (active or standby) is a property of the
// service itself, not of the server; a standby instance answers every
// namespace request with a standby error and leaves failover to the client.
type RPCServer struct {
	config     common.ServerConfig
	svc        meta.IMetaService
	adapter    IRPCServerAdapter
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
}

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(req []byte) []byte {
		var msg common.Message
		var respMsg *common.Message

		// Decode the request
		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(
				fmt.Sprintf("failed to deserialize request: %s", err),
			)
		} else {
			// Let the adapter handle the request
			respMsg = s.adapter.Handle(&msg, s.svc)
		}

		// Return result
		val, err := s.serializer.Serialize(*respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %v", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(
				fmt.Sprintf("failed to serialize response: %s", err),
			))
		}
		return val
	})
}

// Serve starts the RPC server and blocks until Shutdown is called
func (s *RPCServer) Serve() error {
	if s.config.LogLevel == "" {
		s.config.LogLevel = "info"
	}
	common.InitLoggers(s.config.LogLevel)

	Logger.Infof("Created metadata RPC server")
	Logger.Infof(s.config.String())

	s.registerTransportHandler()
	return s.transport.Listen(s.config)
}

// Shutdown stops the transport and releases the metadata service
func (s *RPCServer) Shutdown() error {
	if err := s.transport.Shutdown(); err != nil {
		return err
	}
	return s.svc.Close()
}
