package server

import (
	"fmt"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
)

func NewMetaServerAdapter() IRPCServerAdapter {
	return &metaServerAdapterImpl{}
}

type metaServerAdapterImpl struct{}

// Handle dispatches one decoded request against the metadata service and
// packs the result into the matching response shape. Service errors are
// encoded by the response factories; the adapter never fails a request on
// its own except for nil services and unknown message types.
func (adapter *metaServerAdapterImpl) Handle(req *common.Message, svc meta.IMetaService) *common.Message {
	// Check for nil service
	if svc == nil {
		return common.NewErrorResponse("handler: metadata service is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTGetBlockLocations:
		blocks, err := svc.GetBlockLocations(req.Path, req.Offset, req.Length)
		return common.NewBlocksResponse(blocks, err)
	case common.MsgTCreate:
		status, err := svc.Create(req.Path, req.Perm, req.Client, req.Flag,
			req.CreateParent, req.Replication, req.Size)
		return common.NewStatusResponse(common.MsgTCreate, status, err)
	case common.MsgTAppend:
		lb, status, err := svc.Append(req.Path, req.Client, req.Flag)
		return common.NewAppendResponse(lb, status, err)
	case common.MsgTSetReplication:
		ok, err := svc.SetReplication(req.Path, req.Replication)
		return common.NewBoolResponse(common.MsgTSetReplication, ok, err)
	case common.MsgTSetPermission:
		err := svc.SetPermission(req.Path, req.Perm)
		return common.NewAckResponse(common.MsgTSetPermission, err)
	case common.MsgTSetOwner:
		err := svc.SetOwner(req.Path, req.Owner, req.Group)
		return common.NewAckResponse(common.MsgTSetOwner, err)
	case common.MsgTAbandonBlock:
		err := svc.AbandonBlock(derefBlock(req.Block), req.Path, req.Client, req.FileID)
		return common.NewAckResponse(common.MsgTAbandonBlock, err)
	case common.MsgTAddBlock:
		lb, err := svc.AddBlock(req.Path, req.Client, req.Block, req.Excludes, req.FileID)
		return common.NewLocatedResponse(common.MsgTAddBlock, lb, err)
	case common.MsgTGetAdditionalDatanode:
		lb, err := svc.GetAdditionalDatanode(req.Path, derefBlock(req.Block), req.Nodes,
			req.StorageIDs, req.Excludes, req.NumAdditional, req.Client)
		return common.NewLocatedResponse(common.MsgTGetAdditionalDatanode, lb, err)
	case common.MsgTComplete:
		ok, err := svc.Complete(req.Path, req.Client, req.Block, req.FileID)
		return common.NewBoolResponse(common.MsgTComplete, ok, err)
	case common.MsgTRename:
		ok, err := svc.Rename(req.Path, req.Dst)
		return common.NewBoolResponse(common.MsgTRename, ok, err)
	case common.MsgTTruncate:
		ok, err := svc.Truncate(req.Path, req.Size, req.Client)
		return common.NewBoolResponse(common.MsgTTruncate, ok, err)
	case common.MsgTGetLease:
		err := svc.GetLease(req.Path, req.Client)
		return common.NewAckResponse(common.MsgTGetLease, err)
	case common.MsgTReleaseLease:
		err := svc.ReleaseLease(req.Path, req.Client)
		return common.NewAckResponse(common.MsgTReleaseLease, err)
	case common.MsgTRenewLease:
		err := svc.RenewLease(req.Client)
		return common.NewAckResponse(common.MsgTRenewLease, err)
	case common.MsgTDelete:
		ok, err := svc.Delete(req.Path, req.Recursive)
		return common.NewBoolResponse(common.MsgTDelete, ok, err)
	case common.MsgTMkdirs:
		ok, err := svc.Mkdirs(req.Path, req.Perm, req.CreateParent)
		return common.NewBoolResponse(common.MsgTMkdirs, ok, err)
	case common.MsgTGetListing:
		listing, err := svc.GetListing(req.Path, req.StartAfter, req.NeedLocation)
		return common.NewListingResponse(listing, err)
	case common.MsgTGetFsStats:
		stats, err := svc.GetFsStats()
		return common.NewStatsResponse(stats, err)
	case common.MsgTGetFileInfo:
		status, err := svc.GetFileInfo(req.Path)
		return common.NewStatusResponse(common.MsgTGetFileInfo, status, err)
	case common.MsgTFsync:
		err := svc.Fsync(req.Path, req.Client)
		return common.NewAckResponse(common.MsgTFsync, err)
	case common.MsgTSetTimes:
		err := svc.SetTimes(req.Path, req.Mtime, req.Atime)
		return common.NewAckResponse(common.MsgTSetTimes, err)
	case common.MsgTUpdateBlockForPipeline:
		lb, err := svc.UpdateBlockForPipeline(derefBlock(req.Block), req.Client)
		return common.NewLocatedResponse(common.MsgTUpdateBlockForPipeline, lb, err)
	case common.MsgTUpdatePipeline:
		err := svc.UpdatePipeline(req.Client, derefBlock(req.Block), derefBlock(req.NewBlock),
			req.Nodes, req.StorageIDs)
		return common.NewAckResponse(common.MsgTUpdatePipeline, err)
	case common.MsgTGetDelegationToken:
		token, err := svc.GetDelegationToken(req.Renewer)
		return common.NewTokenResponse(token, err)
	case common.MsgTRenewDelegationToken:
		expiry, err := svc.RenewDelegationToken(req.Token)
		return common.NewExpiryResponse(expiry, err)
	case common.MsgTCancelDelegationToken:
		err := svc.CancelDelegationToken(req.Token)
		return common.NewAckResponse(common.MsgTCancelDelegationToken, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC MetaAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}

// derefBlock guards against requests missing a block the operation requires.
func derefBlock(blk *meta.ExtendedBlock) meta.ExtendedBlock {
	if blk == nil {
		return meta.ExtendedBlock{}
	}
	return *blk
}
