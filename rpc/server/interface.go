package server

import (
	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message and a metadata service as parameters.
	// It returns a Message as a response
	// If an error occurs, it is encoded in the response
	Handle(req *common.Message, svc meta.IMetaService) (resp *common.Message)
}
