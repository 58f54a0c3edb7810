package namespace

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("namespace")

const (
	defaultBlockSize = 128 * 1024 * 1024
	defaultOwner     = "dfs"
	defaultGroup     = "supergroup"

	// capacity a simulated datanode reports
	datanodeCapacity = int64(1) << 40
)

// --------------------------------------------------------------------------
// HA Role
// --------------------------------------------------------------------------

// Role is the high-availability role of a metadata instance.
type Role int32

const (
	RoleActive Role = iota
	RoleStandby
)

func (r Role) String() string {
	if r == RoleActive {
		return "active"
	}
	return "standby"
}

// ParseRole converts a configuration string to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "active":
		return RoleActive, nil
	case "standby":
		return RoleStandby, nil
	default:
		return RoleStandby, fmt.Errorf("invalid role %q: must be active or standby", s)
	}
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// node is one entry in the namespace tree. Nodes are only ever touched
// under the store's tree lock.
type node struct {
	name        string
	isDir       bool
	children    map[string]*node
	perm        meta.Permission
	owner, grp  string
	mtime       int64 // milliseconds since epoch
	atime       int64
	replication uint16
	blockSize   int64
	fileID      int64
	length      int64
	blocks      []meta.LocatedBlock
	open        bool // under construction
}

// Store is an in-memory implementation of meta.IMetaService. It backs the
// dev server and the end-to-end tests; durability and replication are out
// of its scope.
//
// The namespace tree is guarded by a single RWMutex because rename and
// recursive delete need atomicity across multiple paths. The lease and
// token tables are independent of the tree and use concurrent maps.
type Store struct {
	role   atomic.Int32
	closed atomic.Bool

	mu   sync.RWMutex
	root *node

	leases *xsync.MapOf[string, *lease]
	tokens *xsync.MapOf[string, *tokenEntry]

	nextFileID  atomic.Int64
	nextBlockID atomic.Int64
	nextStamp   atomic.Int64
	nextTokenID atomic.Int64

	datanodes []meta.DatanodeInfo
}

// NewStore creates an empty namespace with a static set of simulated
// datanodes for block placement.
func NewStore(role Role) *Store {
	s := &Store{
		root: &node{
			name:     "/",
			isDir:    true,
			children: map[string]*node{},
			perm:     meta.DefaultDirPerm,
			owner:    defaultOwner,
			grp:      defaultGroup,
			mtime:    nowMillis(),
		},
		leases: xsync.NewMapOf[string, *lease](),
		tokens: xsync.NewMapOf[string, *tokenEntry](),
		datanodes: []meta.DatanodeInfo{
			{StorageID: "sim-1", Addr: "127.0.0.1:50010", Hostname: "sim-1"},
			{StorageID: "sim-2", Addr: "127.0.0.1:50011", Hostname: "sim-2"},
			{StorageID: "sim-3", Addr: "127.0.0.1:50012", Hostname: "sim-3"},
		},
	}
	s.role.Store(int32(role))
	Logger.Infof("created namespace store (role %s)", role)
	return s
}

// Role returns the current HA role.
func (s *Store) Role() Role {
	return Role(s.role.Load())
}

// SetRole switches the HA role at runtime. A transition to standby does
// not abort in-flight operations.
func (s *Store) SetRole(role Role) {
	old := Role(s.role.Swap(int32(role)))
	if old != role {
		Logger.Infof("role transition %s -> %s", old, role)
	}
}

// checkActive is the entry gate of every operation: a closed store fails
// with ErrClosed, a standby instance refuses with a StandbyError that the
// client-side HA proxy treats as a failover signal.
func (s *Store) checkActive() error {
	if s.closed.Load() {
		return meta.ErrClosed
	}
	if s.Role() != RoleActive {
		return &meta.StandbyError{}
	}
	return nil
}

// Close clears the namespace. It is idempotent.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	s.root = nil
	s.mu.Unlock()
	s.leases.Clear()
	s.tokens.Clear()
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// --------------------------------------------------------------------------
// Path Handling
// --------------------------------------------------------------------------

// splitPath validates an absolute path and splits it into components.
// The root path yields an empty slice.
func splitPath(op, p string) ([]string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, meta.NewPathError(op, p, "path must be absolute")
	}
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		if part == "." || part == ".." {
			return nil, meta.NewPathError(op, p, "path must not contain . or ..")
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// lookup resolves parts against the tree. Returns nil when the path does
// not exist. Caller holds the tree lock.
func (s *Store) lookup(parts []string) *node {
	n := s.root
	for _, part := range parts {
		if n == nil || !n.isDir {
			return nil
		}
		n = n.children[part]
	}
	return n
}

// lookupParent resolves all but the last component and returns the parent
// node plus the final name. Caller holds the tree lock.
func (s *Store) lookupParent(parts []string) (*node, string) {
	if len(parts) == 0 {
		return nil, ""
	}
	return s.lookup(parts[:len(parts)-1]), parts[len(parts)-1]
}

func (n *node) status(path string) *meta.FileStatus {
	return &meta.FileStatus{
		Path:             path,
		Length:           n.length,
		IsDir:            n.isDir,
		Replication:      n.replication,
		BlockSize:        n.blockSize,
		ModificationTime: n.mtime,
		AccessTime:       n.atime,
		Permission:       n.perm,
		Owner:            n.owner,
		Group:            n.grp,
		FileID:           n.fileID,
	}
}

// --------------------------------------------------------------------------
// Namespace Operations (docu see meta/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Create(src string, perm meta.Permission, clientName string, flag meta.CreateFlag,
	createParent bool, replication uint16, blockSize int64) (*meta.FileStatus, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}
	parts, err := splitPath("create", src)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, meta.NewPathError("create", src, "cannot create the root")
	}
	if perm == 0 {
		perm = meta.DefaultFilePerm
	}
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	if replication == 0 {
		replication = uint16(len(s.datanodes))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, name := s.lookupParent(parts)
	if parent == nil && createParent {
		var perr error
		parent, perr = s.mkdirAll(parts[:len(parts)-1], meta.DefaultDirPerm)
		if perr != nil {
			return nil, perr
		}
	}
	if parent == nil || !parent.isDir {
		return nil, meta.NewPathError("create", src, "parent directory does not exist")
	}

	if existing, ok := parent.children[name]; ok {
		if existing.isDir {
			return nil, meta.NewPathError("create", src, "path is a directory")
		}
		if flag&meta.FlagOverwrite == 0 {
			return nil, meta.NewPathError("create", src, "file already exists")
		}
		if err := s.acquireLease(src, clientName); err != nil {
			return nil, err
		}
		existing.blocks = nil
		existing.length = 0
		existing.mtime = nowMillis()
		existing.open = true
		return existing.status(src), nil
	}

	if err := s.acquireLease(src, clientName); err != nil {
		return nil, err
	}
	now := nowMillis()
	n := &node{
		name:        name,
		perm:        perm,
		owner:       defaultOwner,
		grp:         defaultGroup,
		mtime:       now,
		atime:       now,
		replication: replication,
		blockSize:   blockSize,
		fileID:      s.nextFileID.Add(1),
		open:        true,
	}
	parent.children[name] = n
	parent.mtime = now
	return n.status(src), nil
}

func (s *Store) Append(src, clientName string, flag meta.CreateFlag) (*meta.LocatedBlock, *meta.FileStatus, error) {
	if err := s.checkActive(); err != nil {
		return nil, nil, err
	}
	parts, err := splitPath("append", src)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return nil, nil, meta.NewPathError("append", src, "file does not exist")
	}
	if n.isDir {
		return nil, nil, meta.NewPathError("append", src, "path is a directory")
	}
	if err := s.acquireLease(src, clientName); err != nil {
		return nil, nil, err
	}
	n.open = true

	// hand back the trailing partial block so the client can fill it
	var last *meta.LocatedBlock
	if len(n.blocks) > 0 {
		tail := n.blocks[len(n.blocks)-1]
		if tail.Block.NumBytes < n.blockSize {
			last = &tail
		}
	}
	return last, n.status(src), nil
}

func (s *Store) SetReplication(src string, replication uint16) (bool, error) {
	if err := s.checkActive(); err != nil {
		return false, err
	}
	parts, err := splitPath("setReplication", src)
	if err != nil {
		return false, err
	}
	if replication == 0 {
		return false, meta.NewPathError("setReplication", src, "replication must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return false, meta.NewPathError("setReplication", src, "path does not exist")
	}
	if n.isDir {
		return false, nil
	}
	n.replication = replication
	return true, nil
}

func (s *Store) SetPermission(src string, perm meta.Permission) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	parts, err := splitPath("setPermission", src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return meta.NewPathError("setPermission", src, "path does not exist")
	}
	n.perm = perm
	return nil
}

func (s *Store) SetOwner(src, owner, group string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	parts, err := splitPath("setOwner", src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return meta.NewPathError("setOwner", src, "path does not exist")
	}
	if owner != "" {
		n.owner = owner
	}
	if group != "" {
		n.grp = group
	}
	return nil
}

func (s *Store) Rename(src, dst string) (bool, error) {
	if err := s.checkActive(); err != nil {
		return false, err
	}
	srcParts, err := splitPath("rename", src)
	if err != nil {
		return false, err
	}
	dstParts, err := splitPath("rename", dst)
	if err != nil {
		return false, err
	}
	if len(srcParts) == 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcParent, srcName := s.lookupParent(srcParts)
	if srcParent == nil || !srcParent.isDir {
		return false, nil
	}
	n, ok := srcParent.children[srcName]
	if !ok {
		return false, nil
	}

	dstParent, dstName := s.lookupParent(dstParts)
	if dstParent == nil || !dstParent.isDir || dstName == "" {
		return false, nil
	}
	if _, exists := dstParent.children[dstName]; exists {
		return false, nil
	}

	delete(srcParent.children, srcName)
	n.name = dstName
	dstParent.children[dstName] = n

	now := nowMillis()
	srcParent.mtime = now
	dstParent.mtime = now
	s.moveLease(src, dst)
	return true, nil
}

func (s *Store) Truncate(src string, size int64, clientName string) (bool, error) {
	if err := s.checkActive(); err != nil {
		return false, err
	}
	parts, err := splitPath("truncate", src)
	if err != nil {
		return false, err
	}
	if size < 0 {
		return false, meta.NewPathError("truncate", src, "size must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return false, meta.NewPathError("truncate", src, "file does not exist")
	}
	if n.isDir {
		return false, meta.NewPathError("truncate", src, "path is a directory")
	}
	if size > n.length {
		return false, meta.NewPathError("truncate", src, "cannot truncate beyond the file length")
	}
	if err := s.acquireLease(src, clientName); err != nil {
		return false, err
	}

	// drop whole blocks past the new length, trim the one spanning it
	var kept []meta.LocatedBlock
	remaining := size
	for _, blk := range n.blocks {
		if remaining <= 0 {
			break
		}
		if blk.Block.NumBytes > remaining {
			blk.Block.NumBytes = remaining
		}
		kept = append(kept, blk)
		remaining -= blk.Block.NumBytes
	}
	n.blocks = kept
	n.length = size
	n.mtime = nowMillis()
	s.releaseLeaseIfHolder(src, clientName)
	return true, nil
}

func (s *Store) Delete(src string, recursive bool) (bool, error) {
	if err := s.checkActive(); err != nil {
		return false, err
	}
	parts, err := splitPath("delete", src)
	if err != nil {
		return false, err
	}
	if len(parts) == 0 {
		return false, meta.NewPathError("delete", src, "cannot delete the root")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, name := s.lookupParent(parts)
	if parent == nil || !parent.isDir {
		return false, nil
	}
	n, ok := parent.children[name]
	if !ok {
		return false, nil
	}
	if n.isDir && len(n.children) > 0 && !recursive {
		return false, meta.NewPathError("delete", src, "directory is not empty")
	}

	delete(parent.children, name)
	parent.mtime = nowMillis()
	s.dropLeases(src)
	return true, nil
}

func (s *Store) Mkdirs(src string, perm meta.Permission, createParent bool) (bool, error) {
	if err := s.checkActive(); err != nil {
		return false, err
	}
	parts, err := splitPath("mkdirs", src)
	if err != nil {
		return false, err
	}
	if perm == 0 {
		perm = meta.DefaultDirPerm
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(parts) == 0 {
		return true, nil // root always exists
	}

	if !createParent {
		parent, name := s.lookupParent(parts)
		if parent == nil || !parent.isDir {
			return false, meta.NewPathError("mkdirs", src, "parent directory does not exist")
		}
		if existing, ok := parent.children[name]; ok {
			if !existing.isDir {
				return false, meta.NewPathError("mkdirs", src, "path exists as a file")
			}
			return true, nil
		}
		parent.children[name] = newDirNode(name, perm)
		parent.mtime = nowMillis()
		return true, nil
	}

	if _, err := s.mkdirAll(parts, perm); err != nil {
		return false, err
	}
	return true, nil
}

// mkdirAll creates every missing directory along parts. Caller holds the
// tree lock.
func (s *Store) mkdirAll(parts []string, perm meta.Permission) (*node, error) {
	n := s.root
	for i, part := range parts {
		child, ok := n.children[part]
		if !ok {
			child = newDirNode(part, perm)
			n.children[part] = child
			n.mtime = nowMillis()
		} else if !child.isDir {
			return nil, meta.NewPathError("mkdirs", "/"+strings.Join(parts[:i+1], "/"), "path exists as a file")
		}
		n = child
	}
	return n, nil
}

func newDirNode(name string, perm meta.Permission) *node {
	return &node{
		name:     name,
		isDir:    true,
		children: map[string]*node{},
		perm:     perm,
		owner:    defaultOwner,
		grp:      defaultGroup,
		mtime:    nowMillis(),
	}
}

func (s *Store) GetListing(src, startAfter string, needLocation bool) ([]meta.FileStatus, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}
	parts, err := splitPath("getListing", src)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.lookup(parts)
	if n == nil {
		return nil, meta.NewPathError("getListing", src, "path does not exist")
	}
	if !n.isDir {
		return []meta.FileStatus{*n.status(src)}, nil
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		if name > startAfter {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	prefix := strings.TrimSuffix(src, "/")
	listing := make([]meta.FileStatus, 0, len(names))
	for _, name := range names {
		listing = append(listing, *n.children[name].status(prefix+"/"+name))
	}
	return listing, nil
}

func (s *Store) GetFileInfo(src string) (*meta.FileStatus, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}
	parts, err := splitPath("getFileInfo", src)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.lookup(parts)
	if n == nil {
		return nil, nil
	}
	return n.status(src), nil
}

func (s *Store) SetTimes(src string, mtime, atime int64) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	parts, err := splitPath("setTimes", src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return meta.NewPathError("setTimes", src, "path does not exist")
	}
	if mtime >= 0 {
		n.mtime = mtime
	}
	if atime >= 0 {
		n.atime = atime
	}
	return nil
}

func (s *Store) GetFsStats() (*meta.FsStats, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &meta.FsStats{
		Capacity:        datanodeCapacity * int64(len(s.datanodes)),
		ActiveDatanodes: int64(len(s.datanodes)),
	}
	s.walk(s.root, func(n *node) {
		if n.isDir {
			return
		}
		stats.TotalFiles++
		stats.TotalBlocks += int64(len(n.blocks))
		stats.Used += n.length * int64(max(1, int(n.replication)))
	})
	stats.Remaining = stats.Capacity - stats.Used
	return stats, nil
}

// walk visits every node below n. Caller holds the tree lock.
func (s *Store) walk(n *node, visit func(*node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.children {
		s.walk(child, visit)
	}
}
