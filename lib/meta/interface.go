package meta

// IMetaService is the generic interface for the filesystem metadata service.
// A single server instance implements it directly; the HA proxy in rpc/client
// implements it over a set of redundant instances. The inputs, outputs and
// error contract of every operation are identical in both cases.
//
// All write operations return an error (nil on success), while read
// operations return the requested data along with an error.
type IMetaService interface {
	// GetBlockLocations returns the block map for the byte range
	// [offset, offset+length) of the file at src.
	GetBlockLocations(src string, offset, length int64) (*LocatedBlocks, error)

	// Create creates a new file and returns its status. The flag controls
	// overwrite and append behavior, createParent whether missing parent
	// directories are created implicitly.
	Create(src string, perm Permission, clientName string, flag CreateFlag,
		createParent bool, replication uint16, blockSize int64) (*FileStatus, error)

	// Append opens an existing file for append. It returns the last
	// partial block (if any) and the current file status.
	Append(src, clientName string, flag CreateFlag) (*LocatedBlock, *FileStatus, error)

	// SetReplication changes the replication factor of a file. It returns
	// false if src names a directory.
	SetReplication(src string, replication uint16) (bool, error)

	// SetPermission changes the permission bits of a file or directory.
	SetPermission(src string, perm Permission) error

	// SetOwner changes owner and/or group. Empty strings leave the
	// corresponding attribute unchanged.
	SetOwner(src, owner, group string) error

	// AbandonBlock discards a block previously allocated with AddBlock.
	AbandonBlock(blk ExtendedBlock, src, holder string, fileID int64) error

	// AddBlock allocates the next block of the file under construction and
	// selects target datanodes for its replicas, excluding excludeNodes.
	AddBlock(src, clientName string, previous *ExtendedBlock,
		excludeNodes []DatanodeInfo, fileID int64) (*LocatedBlock, error)

	// GetAdditionalDatanode selects numAdditional replacement nodes for an
	// existing pipeline, excluding both current pipeline members and excludes.
	GetAdditionalDatanode(src string, blk ExtendedBlock, existing []DatanodeInfo,
		storageIDs []string, excludes []DatanodeInfo, numAdditional int,
		clientName string) (*LocatedBlock, error)

	// Complete closes a file under construction. It returns false when the
	// namespace has not yet received all block reports and the caller
	// should retry.
	Complete(src, clientName string, last *ExtendedBlock, fileID int64) (bool, error)

	// Rename moves src to dst. It returns false when the rename is not
	// possible (missing source, existing target).
	Rename(src, dst string) (bool, error)

	// Truncate shortens the file at src to size bytes. It returns true when
	// the truncation completed in place, false when block recovery was
	// scheduled first.
	Truncate(src string, size int64, clientName string) (bool, error)

	// GetLease grants the write lease of src to clientName.
	GetLease(src, clientName string) error

	// ReleaseLease returns the write lease of src held by clientName.
	ReleaseLease(src, clientName string) error

	// RenewLease extends all leases held by clientName.
	RenewLease(clientName string) error

	// Delete removes a file, or a directory when recursive is set. It
	// returns false when src did not exist.
	Delete(src string, recursive bool) (bool, error)

	// Mkdirs creates a directory, with its missing parents when
	// createParent is set.
	Mkdirs(src string, perm Permission, createParent bool) (bool, error)

	// GetListing lists the children of a directory, starting after the
	// child named startAfter (empty string starts at the beginning).
	// needLocation requests block locations for plain files.
	GetListing(src, startAfter string, needLocation bool) ([]FileStatus, error)

	// GetFsStats returns aggregate filesystem statistics.
	GetFsStats() (*FsStats, error)

	// GetFileInfo returns the status of a file or directory, or nil when
	// the path does not exist.
	GetFileInfo(src string) (*FileStatus, error)

	// Fsync persists the current length of a file under construction.
	Fsync(src, clientName string) error

	// SetTimes sets modification and access time (milliseconds since
	// epoch); a negative value leaves the corresponding time unchanged.
	SetTimes(src string, mtime, atime int64) error

	// UpdateBlockForPipeline bumps the generation stamp of a block for
	// pipeline recovery and returns the updated located block.
	UpdateBlockForPipeline(blk ExtendedBlock, clientName string) (*LocatedBlock, error)

	// UpdatePipeline commits a recovered pipeline for a block under
	// construction.
	UpdatePipeline(clientName string, oldBlk, newBlk ExtendedBlock,
		newNodes []DatanodeInfo, storageIDs []string) error

	// GetDelegationToken issues a delegation token with the given renewer.
	GetDelegationToken(renewer string) (*Token, error)

	// RenewDelegationToken extends the lifetime of a token and returns the
	// new expiry time (milliseconds since epoch).
	RenewDelegationToken(token *Token) (int64, error)

	// CancelDelegationToken revokes a token.
	CancelDelegationToken(token *Token) error

	// Close releases all resources held by the service handle. Operations
	// invoked after Close fail with ErrClosed.
	Close() error
}
