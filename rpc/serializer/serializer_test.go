package serializer

import (
	"reflect"
	"testing"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Requests without payload
		{MsgType: common.MsgTGetFsStats},
		{MsgType: common.MsgTRenewLease, Client: "client-1"},

		// Namespace request
		{
			MsgType:      common.MsgTCreate,
			Path:         "/data/file-1",
			Perm:         0644,
			Client:       "client-1",
			Flag:         meta.FlagCreate | meta.FlagOverwrite,
			CreateParent: true,
			Replication:  3,
			Size:         128 * 1024 * 1024,
		},

		// Block request with nested structs
		{
			MsgType: common.MsgTAddBlock,
			Path:    "/data/file-1",
			Client:  "client-1",
			Block:   &meta.ExtendedBlock{PoolID: "pool-1", BlockID: 42, GenerationStamp: 7, NumBytes: 1024},
			Excludes: []meta.DatanodeInfo{
				{StorageID: "s1", Addr: "10.0.0.1:50010"},
			},
			FileID: 1001,
		},

		// Response carrying a block map
		{
			MsgType: common.MsgTGetBlockLocations,
			Blocks: &meta.LocatedBlocks{
				FileLength: 4096,
				Blocks: []meta.LocatedBlock{
					{
						Block:     meta.ExtendedBlock{BlockID: 1, GenerationStamp: 1, NumBytes: 4096},
						Locations: []meta.DatanodeInfo{{StorageID: "s1", Addr: "10.0.0.1:50010"}},
					},
				},
				IsLastBlockComplete: true,
			},
		},

		// Standby error response
		{
			MsgType: common.MsgTMkdirs,
			Err:     "metadata service is in standby state",
			ErrCode: common.ErrCodeStandby,
		},

		// Token response
		{
			MsgType: common.MsgTGetDelegationToken,
			Token: &meta.Token{
				Identifier: []byte("id"),
				Password:   []byte("pw"),
				Kind:       "DFS_DELEGATION_TOKEN",
				Service:    "dfs-cluster",
			},
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypeNames verifies the wire-name mapping is bijective
func TestMessageTypeNames(t *testing.T) {
	for msgType := common.MsgTError; msgType <= common.MsgTGetFsStats; msgType++ {
		name := msgType.String()
		if name == "unknown" {
			t.Errorf("message type %d has no wire name", msgType)
			continue
		}

		data, err := msgType.MarshalJSON()
		if err != nil {
			t.Fatalf("failed to marshal message type %s: %v", name, err)
		}

		var result common.MessageType
		if err := result.UnmarshalJSON(data); err != nil {
			t.Fatalf("failed to unmarshal message type %s: %v", name, err)
		}
		if result != msgType {
			t.Errorf("message type %s round-tripped to %s", name, result)
		}
	}
}
