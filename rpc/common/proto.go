package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dfslabs/dfs/lib/meta"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Path          string              `json:"path,omitempty"`           // Primary path argument (src)
	Dst           string              `json:"dst,omitempty"`            // Rename target
	Client        string              `json:"client,omitempty"`         // Client name / lease holder
	Owner         string              `json:"owner,omitempty"`          // SetOwner
	Group         string              `json:"group,omitempty"`          // SetOwner
	Renewer       string              `json:"renewer,omitempty"`        // GetDelegationToken
	StartAfter    string              `json:"start_after,omitempty"`    // GetListing
	Offset        int64               `json:"offset,omitempty"`         // GetBlockLocations
	Length        int64               `json:"req_length,omitempty"`     // GetBlockLocations
	Size          int64               `json:"size,omitempty"`           // Block size (Create) or new length (Truncate)
	Mtime         int64               `json:"mtime,omitempty"`          // SetTimes
	Atime         int64               `json:"atime,omitempty"`          // SetTimes
	FileID        int64               `json:"file_id,omitempty"`        // AddBlock, AbandonBlock, Complete
	Flag          meta.CreateFlag     `json:"flag,omitempty"`           // Create, Append
	Perm          meta.Permission     `json:"perm,omitempty"`           // Create, Mkdirs, SetPermission
	Replication   uint16              `json:"replication,omitempty"`    // Create, SetReplication
	CreateParent  bool                `json:"create_parent,omitempty"`  // Create, Mkdirs
	Recursive     bool                `json:"recursive,omitempty"`      // Delete
	NeedLocation  bool                `json:"need_location,omitempty"`  // GetListing
	NumAdditional int                 `json:"num_additional,omitempty"` // GetAdditionalDatanode
	Block         *meta.ExtendedBlock `json:"block,omitempty"`          // Previous/affected block
	NewBlock      *meta.ExtendedBlock `json:"new_block,omitempty"`      // UpdatePipeline
	Nodes         []meta.DatanodeInfo `json:"nodes,omitempty"`          // Existing or new pipeline nodes
	Excludes      []meta.DatanodeInfo `json:"excludes,omitempty"`       // Nodes to exclude from selection
	StorageIDs    []string            `json:"storage_ids,omitempty"`    // Pipeline storage IDs
	Token         *meta.Token         `json:"token,omitempty"`          // Token operations
	Auth          *meta.Credentials   `json:"auth,omitempty"`           // Pass-through credentials

	// Response fields
	Ok      bool                `json:"ok,omitempty"`      // Bool-valued operations
	Located *meta.LocatedBlock  `json:"located,omitempty"` // Single located block
	Blocks  *meta.LocatedBlocks `json:"blocks,omitempty"`  // Block map of a file
	Status  *meta.FileStatus    `json:"status,omitempty"`  // Single file status
	Listing []meta.FileStatus   `json:"listing,omitempty"` // Directory listing
	Stats   *meta.FsStats       `json:"stats,omitempty"`   // Filesystem statistics
	Expiry  int64               `json:"expiry,omitempty"`  // RenewDelegationToken
	Err     string              `json:"err,omitempty"`     // Empty if no error
	ErrCode ErrCode             `json:"err_code,omitempty"`

	// Structured error fields, filled for path and lease errors so the
	// client side can rebuild the typed value instead of a bare string
	ErrPath   string `json:"err_path,omitempty"`   // Path the error refers to
	ErrHolder string `json:"err_holder,omitempty"` // Conflicting lease holder
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewGetBlockLocationsRequest creates a new GetBlockLocations request
func NewGetBlockLocationsRequest(src string, offset, length int64) *Message {
	return &Message{MsgType: MsgTGetBlockLocations, Path: src, Offset: offset, Length: length}
}

// NewCreateRequest creates a new Create request
func NewCreateRequest(src string, perm meta.Permission, clientName string, flag meta.CreateFlag,
	createParent bool, replication uint16, blockSize int64) *Message {
	return &Message{
		MsgType:      MsgTCreate,
		Path:         src,
		Perm:         perm,
		Client:       clientName,
		Flag:         flag,
		CreateParent: createParent,
		Replication:  replication,
		Size:         blockSize,
	}
}

// NewAppendRequest creates a new Append request
func NewAppendRequest(src, clientName string, flag meta.CreateFlag) *Message {
	return &Message{MsgType: MsgTAppend, Path: src, Client: clientName, Flag: flag}
}

// NewSetReplicationRequest creates a new SetReplication request
func NewSetReplicationRequest(src string, replication uint16) *Message {
	return &Message{MsgType: MsgTSetReplication, Path: src, Replication: replication}
}

// NewSetPermissionRequest creates a new SetPermission request
func NewSetPermissionRequest(src string, perm meta.Permission) *Message {
	return &Message{MsgType: MsgTSetPermission, Path: src, Perm: perm}
}

// NewSetOwnerRequest creates a new SetOwner request
func NewSetOwnerRequest(src, owner, group string) *Message {
	return &Message{MsgType: MsgTSetOwner, Path: src, Owner: owner, Group: group}
}

// NewAbandonBlockRequest creates a new AbandonBlock request
func NewAbandonBlockRequest(blk meta.ExtendedBlock, src, holder string, fileID int64) *Message {
	return &Message{MsgType: MsgTAbandonBlock, Block: &blk, Path: src, Client: holder, FileID: fileID}
}

// NewAddBlockRequest creates a new AddBlock request
func NewAddBlockRequest(src, clientName string, previous *meta.ExtendedBlock,
	excludeNodes []meta.DatanodeInfo, fileID int64) *Message {
	return &Message{
		MsgType:  MsgTAddBlock,
		Path:     src,
		Client:   clientName,
		Block:    previous,
		Excludes: excludeNodes,
		FileID:   fileID,
	}
}

// NewGetAdditionalDatanodeRequest creates a new GetAdditionalDatanode request
func NewGetAdditionalDatanodeRequest(src string, blk meta.ExtendedBlock,
	existing []meta.DatanodeInfo, storageIDs []string, excludes []meta.DatanodeInfo,
	numAdditional int, clientName string) *Message {
	return &Message{
		MsgType:       MsgTGetAdditionalDatanode,
		Path:          src,
		Block:         &blk,
		Nodes:         existing,
		StorageIDs:    storageIDs,
		Excludes:      excludes,
		NumAdditional: numAdditional,
		Client:        clientName,
	}
}

// NewCompleteRequest creates a new Complete request
func NewCompleteRequest(src, clientName string, last *meta.ExtendedBlock, fileID int64) *Message {
	return &Message{MsgType: MsgTComplete, Path: src, Client: clientName, Block: last, FileID: fileID}
}

// NewRenameRequest creates a new Rename request
func NewRenameRequest(src, dst string) *Message {
	return &Message{MsgType: MsgTRename, Path: src, Dst: dst}
}

// NewTruncateRequest creates a new Truncate request
func NewTruncateRequest(src string, size int64, clientName string) *Message {
	return &Message{MsgType: MsgTTruncate, Path: src, Size: size, Client: clientName}
}

// NewGetLeaseRequest creates a new GetLease request
func NewGetLeaseRequest(src, clientName string) *Message {
	return &Message{MsgType: MsgTGetLease, Path: src, Client: clientName}
}

// NewReleaseLeaseRequest creates a new ReleaseLease request
func NewReleaseLeaseRequest(src, clientName string) *Message {
	return &Message{MsgType: MsgTReleaseLease, Path: src, Client: clientName}
}

// NewRenewLeaseRequest creates a new RenewLease request
func NewRenewLeaseRequest(clientName string) *Message {
	return &Message{MsgType: MsgTRenewLease, Client: clientName}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(src string, recursive bool) *Message {
	return &Message{MsgType: MsgTDelete, Path: src, Recursive: recursive}
}

// NewMkdirsRequest creates a new Mkdirs request
func NewMkdirsRequest(src string, perm meta.Permission, createParent bool) *Message {
	return &Message{MsgType: MsgTMkdirs, Path: src, Perm: perm, CreateParent: createParent}
}

// NewGetListingRequest creates a new GetListing request
func NewGetListingRequest(src, startAfter string, needLocation bool) *Message {
	return &Message{MsgType: MsgTGetListing, Path: src, StartAfter: startAfter, NeedLocation: needLocation}
}

// NewGetFsStatsRequest creates a new GetFsStats request
func NewGetFsStatsRequest() *Message {
	return &Message{MsgType: MsgTGetFsStats}
}

// NewGetFileInfoRequest creates a new GetFileInfo request
func NewGetFileInfoRequest(src string) *Message {
	return &Message{MsgType: MsgTGetFileInfo, Path: src}
}

// NewFsyncRequest creates a new Fsync request
func NewFsyncRequest(src, clientName string) *Message {
	return &Message{MsgType: MsgTFsync, Path: src, Client: clientName}
}

// NewSetTimesRequest creates a new SetTimes request
func NewSetTimesRequest(src string, mtime, atime int64) *Message {
	return &Message{MsgType: MsgTSetTimes, Path: src, Mtime: mtime, Atime: atime}
}

// NewUpdateBlockForPipelineRequest creates a new UpdateBlockForPipeline request
func NewUpdateBlockForPipelineRequest(blk meta.ExtendedBlock, clientName string) *Message {
	return &Message{MsgType: MsgTUpdateBlockForPipeline, Block: &blk, Client: clientName}
}

// NewUpdatePipelineRequest creates a new UpdatePipeline request
func NewUpdatePipelineRequest(clientName string, oldBlk, newBlk meta.ExtendedBlock,
	newNodes []meta.DatanodeInfo, storageIDs []string) *Message {
	return &Message{
		MsgType:    MsgTUpdatePipeline,
		Client:     clientName,
		Block:      &oldBlk,
		NewBlock:   &newBlk,
		Nodes:      newNodes,
		StorageIDs: storageIDs,
	}
}

// NewGetDelegationTokenRequest creates a new GetDelegationToken request
func NewGetDelegationTokenRequest(renewer string) *Message {
	return &Message{MsgType: MsgTGetDelegationToken, Renewer: renewer}
}

// NewRenewDelegationTokenRequest creates a new RenewDelegationToken request
func NewRenewDelegationTokenRequest(token *meta.Token) *Message {
	return &Message{MsgType: MsgTRenewDelegationToken, Token: token}
}

// NewCancelDelegationTokenRequest creates a new CancelDelegationToken request
func NewCancelDelegationTokenRequest(token *meta.Token) *Message {
	return &Message{MsgType: MsgTCancelDelegationToken, Token: token}
}

// --------------------------------------------------------------------------
// Response Factory Functions
//
// Responses share a handful of shapes, so there is one factory per shape
// instead of one per operation. Every factory encodes a non-nil error into
// the Err/ErrCode fields.
// --------------------------------------------------------------------------

// NewAckResponse creates a response for operations without a return value
func NewAckResponse(t MessageType, err error) *Message {
	msg := &Message{MsgType: t}
	msg.setError(err)
	return msg
}

// NewBoolResponse creates a response for bool-valued operations
func NewBoolResponse(t MessageType, ok bool, err error) *Message {
	msg := &Message{MsgType: t, Ok: ok}
	msg.setError(err)
	return msg
}

// NewLocatedResponse creates a response carrying a single located block
func NewLocatedResponse(t MessageType, lb *meta.LocatedBlock, err error) *Message {
	msg := &Message{MsgType: t, Located: lb}
	msg.setError(err)
	return msg
}

// NewBlocksResponse creates a response carrying the block map of a file
func NewBlocksResponse(blocks *meta.LocatedBlocks, err error) *Message {
	msg := &Message{MsgType: MsgTGetBlockLocations, Blocks: blocks}
	msg.setError(err)
	return msg
}

// NewStatusResponse creates a response carrying a single file status
func NewStatusResponse(t MessageType, status *meta.FileStatus, err error) *Message {
	msg := &Message{MsgType: t, Status: status}
	msg.setError(err)
	return msg
}

// NewAppendResponse creates the Append response (last block plus status)
func NewAppendResponse(lb *meta.LocatedBlock, status *meta.FileStatus, err error) *Message {
	msg := &Message{MsgType: MsgTAppend, Located: lb, Status: status}
	msg.setError(err)
	return msg
}

// NewListingResponse creates the GetListing response
func NewListingResponse(listing []meta.FileStatus, err error) *Message {
	msg := &Message{MsgType: MsgTGetListing, Listing: listing}
	msg.setError(err)
	return msg
}

// NewStatsResponse creates the GetFsStats response
func NewStatsResponse(stats *meta.FsStats, err error) *Message {
	msg := &Message{MsgType: MsgTGetFsStats, Stats: stats}
	msg.setError(err)
	return msg
}

// NewTokenResponse creates the GetDelegationToken response
func NewTokenResponse(token *meta.Token, err error) *Message {
	msg := &Message{MsgType: MsgTGetDelegationToken, Token: token}
	msg.setError(err)
	return msg
}

// NewExpiryResponse creates the RenewDelegationToken response
func NewExpiryResponse(expiry int64, err error) *Message {
	msg := &Message{MsgType: MsgTRenewDelegationToken, Expiry: expiry}
	msg.setError(err)
	return msg
}

// NewErrorResponse creates a generic error response
func NewErrorResponse(err string) *Message {
	return &Message{MsgType: MsgTError, Err: err, ErrCode: ErrCodeGeneric}
}

// setError encodes err into the message's Err and ErrCode fields
func (m *Message) setError(err error) {
	if err == nil {
		return
	}
	m.ErrCode, m.Err = EncodeError(err)

	var (
		pathErr *meta.PathError
		lease   *meta.LeaseError
	)
	switch {
	case errors.As(err, &pathErr):
		m.ErrPath = pathErr.Path
	case errors.As(err, &lease):
		m.ErrPath = lease.Path
		m.ErrHolder = lease.Holder
	}
}

// --------------------------------------------------------------------------
// Wire Error Codes
// --------------------------------------------------------------------------

// ErrCode classifies an error carried in a response so the client side can
// reconstruct the matching typed error. Placement decisions in the HA proxy
// depend on this classification.
type ErrCode uint8

const (
	ErrCodeNone    ErrCode = iota // No error
	ErrCodeGeneric                // Unclassified server-side failure
	ErrCodeStandby                // Instance is not the current active
	ErrCodePath                   // Namespace error for a single path
	ErrCodeLease                  // Lease conflict
)

// EncodeError maps a server-side error to its wire representation.
func EncodeError(err error) (ErrCode, string) {
	var (
		standby *meta.StandbyError
		pathErr *meta.PathError
		lease   *meta.LeaseError
	)
	switch {
	case err == nil:
		return ErrCodeNone, ""
	case errors.As(err, &standby):
		return ErrCodeStandby, err.Error()
	case errors.As(err, &pathErr):
		return ErrCodePath, err.Error()
	case errors.As(err, &lease):
		return ErrCodeLease, err.Error()
	default:
		return ErrCodeGeneric, err.Error()
	}
}

// DecodeError reconstructs a typed error from a response. The endpoint
// address is attached to standby errors so log lines name the rejecting
// instance. Path and lease errors are rebuilt from the structured fields
// the server filled in, so errors.As works the same on both sides of the
// wire.
func DecodeError(resp *Message, addr string) error {
	if resp.ErrCode == ErrCodeNone && resp.Err == "" && resp.MsgType != MsgTError {
		return nil
	}
	switch resp.ErrCode {
	case ErrCodeStandby:
		return &meta.StandbyError{Addr: addr}
	case ErrCodePath:
		return &meta.PathError{Op: resp.MsgType.String(), Path: resp.ErrPath, Msg: resp.Err}
	case ErrCodeLease:
		return &meta.LeaseError{Path: resp.ErrPath, Holder: resp.ErrHolder}
	default:
		return fmt.Errorf("metadata rpc error: %s", resp.Err)
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTError               // Indicates an error occurred

	// Namespace operations

	MsgTGetBlockLocations
	MsgTCreate
	MsgTAppend
	MsgTSetReplication
	MsgTSetPermission
	MsgTSetOwner
	MsgTRename
	MsgTTruncate
	MsgTDelete
	MsgTMkdirs
	MsgTGetListing
	MsgTGetFileInfo
	MsgTSetTimes
	MsgTFsync

	// Block operations

	MsgTAbandonBlock
	MsgTAddBlock
	MsgTGetAdditionalDatanode
	MsgTComplete
	MsgTUpdateBlockForPipeline
	MsgTUpdatePipeline

	// Lease operations

	MsgTGetLease
	MsgTReleaseLease
	MsgTRenewLease

	// Token operations

	MsgTGetDelegationToken
	MsgTRenewDelegationToken
	MsgTCancelDelegationToken

	// Statistics

	MsgTGetFsStats
)

// msgTypeNames maps each MessageType to its wire name. Kept as a table
// because the operation set is large.
var msgTypeNames = map[MessageType]string{
	MsgTError:                  "error",
	MsgTGetBlockLocations:      "getBlockLocations",
	MsgTCreate:                 "create",
	MsgTAppend:                 "append",
	MsgTSetReplication:         "setReplication",
	MsgTSetPermission:          "setPermission",
	MsgTSetOwner:               "setOwner",
	MsgTRename:                 "rename",
	MsgTTruncate:               "truncate",
	MsgTDelete:                 "delete",
	MsgTMkdirs:                 "mkdirs",
	MsgTGetListing:             "getListing",
	MsgTGetFileInfo:            "getFileInfo",
	MsgTSetTimes:               "setTimes",
	MsgTFsync:                  "fsync",
	MsgTAbandonBlock:           "abandonBlock",
	MsgTAddBlock:               "addBlock",
	MsgTGetAdditionalDatanode:  "getAdditionalDatanode",
	MsgTComplete:               "complete",
	MsgTUpdateBlockForPipeline: "updateBlockForPipeline",
	MsgTUpdatePipeline:         "updatePipeline",
	MsgTGetLease:               "getLease",
	MsgTReleaseLease:           "releaseLease",
	MsgTRenewLease:             "renewLease",
	MsgTGetDelegationToken:     "getDelegationToken",
	MsgTRenewDelegationToken:   "renewDelegationToken",
	MsgTCancelDelegationToken:  "cancelDelegationToken",
	MsgTGetFsStats:             "getFsStats",
}

// msgTypeValues is the inverse of msgTypeNames, built once at init time.
var msgTypeValues = func() map[string]MessageType {
	m := make(map[string]MessageType, len(msgTypeNames))
	for t, name := range msgTypeNames {
		m[name] = t
	}
	return m
}()

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := msgTypeValues[s]
	if !ok {
		return fmt.Errorf("unknown message type: %s", s)
	}
	*t = v
	return nil
}
