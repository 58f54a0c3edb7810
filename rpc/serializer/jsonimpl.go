package serializer

import (
	"encoding/json"

	"github.com/dfslabs/dfs/rpc/common"
)

// NewJSONSerializer creates a serializer that encodes metadata messages as
// json. The wire format stays human readable, which makes it the default
// when inspecting traffic between a client and its metadata instances.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements IRPCSerializer for metadata messages using
// encoding/json
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return json.Unmarshal(b, msg)
}
