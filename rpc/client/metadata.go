package client

import (
	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see the meta package in interface.go)
//
// One method per metadata operation: build the request message, invoke it
// against this single instance, unpack the response.
// --------------------------------------------------------------------------

func (c *remoteMeta) GetBlockLocations(src string, offset, length int64) (*meta.LocatedBlocks, error) {
	resp, err := c.invoke(common.NewGetBlockLocationsRequest(src, offset, length))
	if err != nil {
		return nil, err
	}
	return resp.Blocks, nil
}

func (c *remoteMeta) Create(src string, perm meta.Permission, clientName string, flag meta.CreateFlag,
	createParent bool, replication uint16, blockSize int64) (*meta.FileStatus, error) {
	resp, err := c.invoke(common.NewCreateRequest(src, perm, clientName, flag, createParent, replication, blockSize))
	if err != nil {
		return nil, err
	}
	return resp.Status, nil
}

func (c *remoteMeta) Append(src, clientName string, flag meta.CreateFlag) (*meta.LocatedBlock, *meta.FileStatus, error) {
	resp, err := c.invoke(common.NewAppendRequest(src, clientName, flag))
	if err != nil {
		return nil, nil, err
	}
	return resp.Located, resp.Status, nil
}

func (c *remoteMeta) SetReplication(src string, replication uint16) (bool, error) {
	resp, err := c.invoke(common.NewSetReplicationRequest(src, replication))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *remoteMeta) SetPermission(src string, perm meta.Permission) error {
	_, err := c.invoke(common.NewSetPermissionRequest(src, perm))
	return err
}

func (c *remoteMeta) SetOwner(src, owner, group string) error {
	_, err := c.invoke(common.NewSetOwnerRequest(src, owner, group))
	return err
}

func (c *remoteMeta) AbandonBlock(blk meta.ExtendedBlock, src, holder string, fileID int64) error {
	_, err := c.invoke(common.NewAbandonBlockRequest(blk, src, holder, fileID))
	return err
}

func (c *remoteMeta) AddBlock(src, clientName string, previous *meta.ExtendedBlock,
	excludeNodes []meta.DatanodeInfo, fileID int64) (*meta.LocatedBlock, error) {
	resp, err := c.invoke(common.NewAddBlockRequest(src, clientName, previous, excludeNodes, fileID))
	if err != nil {
		return nil, err
	}
	return resp.Located, nil
}

func (c *remoteMeta) GetAdditionalDatanode(src string, blk meta.ExtendedBlock, existing []meta.DatanodeInfo,
	storageIDs []string, excludes []meta.DatanodeInfo, numAdditional int, clientName string) (*meta.LocatedBlock, error) {
	resp, err := c.invoke(common.NewGetAdditionalDatanodeRequest(src, blk, existing, storageIDs, excludes, numAdditional, clientName))
	if err != nil {
		return nil, err
	}
	return resp.Located, nil
}

func (c *remoteMeta) Complete(src, clientName string, last *meta.ExtendedBlock, fileID int64) (bool, error) {
	resp, err := c.invoke(common.NewCompleteRequest(src, clientName, last, fileID))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *remoteMeta) Rename(src, dst string) (bool, error) {
	resp, err := c.invoke(common.NewRenameRequest(src, dst))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *remoteMeta) Truncate(src string, size int64, clientName string) (bool, error) {
	resp, err := c.invoke(common.NewTruncateRequest(src, size, clientName))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *remoteMeta) GetLease(src, clientName string) error {
	_, err := c.invoke(common.NewGetLeaseRequest(src, clientName))
	return err
}

func (c *remoteMeta) ReleaseLease(src, clientName string) error {
	_, err := c.invoke(common.NewReleaseLeaseRequest(src, clientName))
	return err
}

func (c *remoteMeta) RenewLease(clientName string) error {
	_, err := c.invoke(common.NewRenewLeaseRequest(clientName))
	return err
}

func (c *remoteMeta) Delete(src string, recursive bool) (bool, error) {
	resp, err := c.invoke(common.NewDeleteRequest(src, recursive))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *remoteMeta) Mkdirs(src string, perm meta.Permission, createParent bool) (bool, error) {
	resp, err := c.invoke(common.NewMkdirsRequest(src, perm, createParent))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (c *remoteMeta) GetListing(src, startAfter string, needLocation bool) ([]meta.FileStatus, error) {
	resp, err := c.invoke(common.NewGetListingRequest(src, startAfter, needLocation))
	if err != nil {
		return nil, err
	}
	return resp.Listing, nil
}

func (c *remoteMeta) GetFsStats() (*meta.FsStats, error) {
	resp, err := c.invoke(common.NewGetFsStatsRequest())
	if err != nil {
		return nil, err
	}
	return resp.Stats, nil
}

func (c *remoteMeta) GetFileInfo(src string) (*meta.FileStatus, error) {
	resp, err := c.invoke(common.NewGetFileInfoRequest(src))
	if err != nil {
		return nil, err
	}
	return resp.Status, nil
}

func (c *remoteMeta) Fsync(src, clientName string) error {
	_, err := c.invoke(common.NewFsyncRequest(src, clientName))
	return err
}

func (c *remoteMeta) SetTimes(src string, mtime, atime int64) error {
	_, err := c.invoke(common.NewSetTimesRequest(src, mtime, atime))
	return err
}

func (c *remoteMeta) UpdateBlockForPipeline(blk meta.ExtendedBlock, clientName string) (*meta.LocatedBlock, error) {
	resp, err := c.invoke(common.NewUpdateBlockForPipelineRequest(blk, clientName))
	if err != nil {
		return nil, err
	}
	return resp.Located, nil
}

func (c *remoteMeta) UpdatePipeline(clientName string, oldBlk, newBlk meta.ExtendedBlock,
	newNodes []meta.DatanodeInfo, storageIDs []string) error {
	_, err := c.invoke(common.NewUpdatePipelineRequest(clientName, oldBlk, newBlk, newNodes, storageIDs))
	return err
}

func (c *remoteMeta) GetDelegationToken(renewer string) (*meta.Token, error) {
	resp, err := c.invoke(common.NewGetDelegationTokenRequest(renewer))
	if err != nil {
		return nil, err
	}
	return resp.Token, nil
}

func (c *remoteMeta) RenewDelegationToken(token *meta.Token) (int64, error) {
	resp, err := c.invoke(common.NewRenewDelegationTokenRequest(token))
	if err != nil {
		return 0, err
	}
	return resp.Expiry, nil
}

func (c *remoteMeta) CancelDelegationToken(token *meta.Token) error {
	_, err := c.invoke(common.NewCancelDelegationTokenRequest(token))
	return err
}
