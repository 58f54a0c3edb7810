package meta

// --------------------------------------------------------------------------
// Permissions and Flags
// --------------------------------------------------------------------------

// Permission holds POSIX-style permission bits for a file or directory.
type Permission uint16

const (
	// DefaultFilePerm is used when a create request carries no permission
	DefaultFilePerm Permission = 0644
	// DefaultDirPerm is used when a mkdirs request carries no permission
	DefaultDirPerm Permission = 0755
)

// CreateFlag controls how Create and Append open a file.
type CreateFlag uint32

const (
	FlagCreate    CreateFlag = 1 << iota // Create the file if it does not exist
	FlagOverwrite                        // Truncate an existing file
	FlagAppend                           // Open an existing file for append
)

// --------------------------------------------------------------------------
// Namespace Types
// --------------------------------------------------------------------------

// FileStatus describes a single file or directory in the namespace.
type FileStatus struct {
	Path             string     `json:"path"`
	Length           int64      `json:"length,omitempty"`
	IsDir            bool       `json:"is_dir,omitempty"`
	Replication      uint16     `json:"replication,omitempty"`
	BlockSize        int64      `json:"block_size,omitempty"`
	ModificationTime int64      `json:"mtime,omitempty"` // milliseconds since epoch
	AccessTime       int64      `json:"atime,omitempty"` // milliseconds since epoch
	Permission       Permission `json:"perm,omitempty"`
	Owner            string     `json:"owner,omitempty"`
	Group            string     `json:"group,omitempty"`
	FileID           int64      `json:"file_id,omitempty"`
}

// --------------------------------------------------------------------------
// Block Types
// --------------------------------------------------------------------------

// ExtendedBlock identifies one block of a file within a block pool.
type ExtendedBlock struct {
	PoolID          string `json:"pool_id,omitempty"`
	BlockID         int64  `json:"block_id"`
	GenerationStamp int64  `json:"gen_stamp"`
	NumBytes        int64  `json:"num_bytes,omitempty"`
}

// DatanodeInfo describes one storage node that holds block replicas.
type DatanodeInfo struct {
	StorageID string `json:"storage_id"`
	Addr      string `json:"addr"` // host:port of the data transfer endpoint
	Hostname  string `json:"hostname,omitempty"`
}

// LocatedBlock is a block plus the set of nodes holding its replicas.
type LocatedBlock struct {
	Block      ExtendedBlock  `json:"block"`
	Offset     int64          `json:"offset,omitempty"` // offset of the block within the file
	Locations  []DatanodeInfo `json:"locations,omitempty"`
	StorageIDs []string       `json:"storage_ids,omitempty"`
	Corrupt    bool           `json:"corrupt,omitempty"`
}

// LocatedBlocks is the block map of a file as returned by GetBlockLocations.
type LocatedBlocks struct {
	FileLength          int64          `json:"file_length"`
	Blocks              []LocatedBlock `json:"blocks,omitempty"`
	UnderConstruction   bool           `json:"under_construction,omitempty"`
	LastBlock           *LocatedBlock  `json:"last_block,omitempty"`
	IsLastBlockComplete bool           `json:"last_block_complete,omitempty"`
}

// --------------------------------------------------------------------------
// Security Types
// --------------------------------------------------------------------------

// Token is a delegation token issued by the metadata service. The client
// treats it as opaque material.
type Token struct {
	Identifier []byte `json:"identifier"`
	Password   []byte `json:"password,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Service    string `json:"service,omitempty"`
}

// Credentials holds the authentication material passed unchanged to every
// endpoint. The coordinator never inspects it.
type Credentials struct {
	User  string `json:"user,omitempty"`
	Token *Token `json:"token,omitempty"`
}

// --------------------------------------------------------------------------
// Statistics
// --------------------------------------------------------------------------

// FsStats holds aggregate filesystem statistics.
type FsStats struct {
	Capacity         int64 `json:"capacity"`
	Used             int64 `json:"used"`
	Remaining        int64 `json:"remaining"`
	UnderReplicated  int64 `json:"under_replicated,omitempty"`
	CorruptBlocks    int64 `json:"corrupt_blocks,omitempty"`
	MissingBlocks    int64 `json:"missing_blocks,omitempty"`
	TotalFiles       int64 `json:"total_files,omitempty"`
	TotalBlocks      int64 `json:"total_blocks,omitempty"`
	ActiveDatanodes  int64 `json:"active_datanodes,omitempty"`
}
