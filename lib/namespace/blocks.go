package namespace

import (
	"github.com/dfslabs/dfs/lib/meta"
)

// --------------------------------------------------------------------------
// Block Operations (docu see meta/interface.go)
//
// Blocks are simulated: allocation assigns IDs, generation stamps and
// placement on the static datanode set, but no replica ever holds data.
// --------------------------------------------------------------------------

func (s *Store) GetBlockLocations(src string, offset, length int64) (*meta.LocatedBlocks, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}
	parts, err := splitPath("getBlockLocations", src)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, meta.NewPathError("getBlockLocations", src, "offset and length must not be negative")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.lookup(parts)
	if n == nil {
		return nil, meta.NewPathError("getBlockLocations", src, "file does not exist")
	}
	if n.isDir {
		return nil, meta.NewPathError("getBlockLocations", src, "path is a directory")
	}

	located := &meta.LocatedBlocks{
		FileLength:          n.length,
		UnderConstruction:   n.open,
		IsLastBlockComplete: !n.open,
	}
	end := offset + length
	for _, blk := range n.blocks {
		if blk.Offset+blk.Block.NumBytes <= offset && blk.Block.NumBytes > 0 {
			continue
		}
		if blk.Offset >= end {
			break
		}
		located.Blocks = append(located.Blocks, blk)
	}
	if len(n.blocks) > 0 {
		tail := n.blocks[len(n.blocks)-1]
		located.LastBlock = &tail
	}
	return located, nil
}

func (s *Store) AddBlock(src, clientName string, previous *meta.ExtendedBlock,
	excludeNodes []meta.DatanodeInfo, fileID int64) (*meta.LocatedBlock, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}
	parts, err := splitPath("addBlock", src)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return nil, meta.NewPathError("addBlock", src, "file does not exist")
	}
	if err := s.checkLease(src, clientName); err != nil {
		return nil, err
	}

	// commit the size of the previous block before allocating the next one
	if previous != nil {
		for i := range n.blocks {
			if n.blocks[i].Block.BlockID == previous.BlockID {
				n.blocks[i].Block.NumBytes = previous.NumBytes
				break
			}
		}
		n.length = committedLength(n)
	}

	targets := s.selectDatanodes(nil, excludeNodes, int(n.replication))
	if len(targets) == 0 {
		return nil, meta.NewPathError("addBlock", src, "no datanodes available for placement")
	}

	blk := meta.LocatedBlock{
		Block: meta.ExtendedBlock{
			PoolID:          "sim-pool",
			BlockID:         s.nextBlockID.Add(1),
			GenerationStamp: s.nextStamp.Add(1),
		},
		Offset:     n.length,
		Locations:  targets,
		StorageIDs: collectStorageIDs(targets),
	}
	n.blocks = append(n.blocks, blk)
	return &blk, nil
}

func (s *Store) AbandonBlock(blk meta.ExtendedBlock, src, holder string, fileID int64) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	parts, err := splitPath("abandonBlock", src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return meta.NewPathError("abandonBlock", src, "file does not exist")
	}
	if err := s.checkLease(src, holder); err != nil {
		return err
	}

	for i := range n.blocks {
		if n.blocks[i].Block.BlockID == blk.BlockID {
			n.blocks = append(n.blocks[:i], n.blocks[i+1:]...)
			return nil
		}
	}
	return meta.NewPathError("abandonBlock", src, "block is not part of the file")
}

func (s *Store) GetAdditionalDatanode(src string, blk meta.ExtendedBlock, existing []meta.DatanodeInfo,
	storageIDs []string, excludes []meta.DatanodeInfo, numAdditional int, clientName string) (*meta.LocatedBlock, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}
	if _, err := splitPath("getAdditionalDatanode", src); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	additional := s.selectDatanodes(existing, excludes, numAdditional)
	if len(additional) == 0 {
		return nil, meta.NewPathError("getAdditionalDatanode", src, "no replacement datanodes available")
	}

	nodes := append(append([]meta.DatanodeInfo{}, existing...), additional...)
	return &meta.LocatedBlock{
		Block:      blk,
		Locations:  nodes,
		StorageIDs: append(append([]string{}, storageIDs...), collectStorageIDs(additional)...),
	}, nil
}

func (s *Store) Complete(src, clientName string, last *meta.ExtendedBlock, fileID int64) (bool, error) {
	if err := s.checkActive(); err != nil {
		return false, err
	}
	parts, err := splitPath("complete", src)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return false, meta.NewPathError("complete", src, "file does not exist")
	}
	if err := s.checkLease(src, clientName); err != nil {
		return false, err
	}

	if last != nil {
		for i := range n.blocks {
			if n.blocks[i].Block.BlockID == last.BlockID {
				n.blocks[i].Block.NumBytes = last.NumBytes
				break
			}
		}
	}
	n.length = committedLength(n)
	n.open = false
	n.mtime = nowMillis()
	s.releaseLeaseIfHolder(src, clientName)
	return true, nil
}

func (s *Store) Fsync(src, clientName string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	parts, err := splitPath("fsync", src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(parts)
	if n == nil {
		return meta.NewPathError("fsync", src, "file does not exist")
	}
	if err := s.checkLease(src, clientName); err != nil {
		return err
	}
	n.length = committedLength(n)
	return nil
}

func (s *Store) UpdateBlockForPipeline(blk meta.ExtendedBlock, clientName string) (*meta.LocatedBlock, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	located := s.findBlock(blk.BlockID)
	if located == nil {
		return nil, meta.NewPathError("updateBlockForPipeline", "", "unknown block")
	}
	located.Block.GenerationStamp = s.nextStamp.Add(1)
	updated := *located
	return &updated, nil
}

func (s *Store) UpdatePipeline(clientName string, oldBlk, newBlk meta.ExtendedBlock,
	newNodes []meta.DatanodeInfo, storageIDs []string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if newBlk.BlockID != oldBlk.BlockID {
		return meta.NewPathError("updatePipeline", "", "pipeline recovery must not change the block ID")
	}
	if newBlk.GenerationStamp <= oldBlk.GenerationStamp {
		return meta.NewPathError("updatePipeline", "", "generation stamp must advance")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	located := s.findBlock(oldBlk.BlockID)
	if located == nil {
		return meta.NewPathError("updatePipeline", "", "unknown block")
	}
	located.Block = newBlk
	located.Locations = newNodes
	located.StorageIDs = storageIDs
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// selectDatanodes picks up to want nodes from the pool that appear in
// neither taken nor excluded. Caller holds the tree lock.
func (s *Store) selectDatanodes(taken, excluded []meta.DatanodeInfo, want int) []meta.DatanodeInfo {
	used := make(map[string]bool, len(taken)+len(excluded))
	for _, dn := range taken {
		used[dn.StorageID] = true
	}
	for _, dn := range excluded {
		used[dn.StorageID] = true
	}

	var targets []meta.DatanodeInfo
	for _, dn := range s.datanodes {
		if len(targets) >= want {
			break
		}
		if !used[dn.StorageID] {
			targets = append(targets, dn)
		}
	}
	return targets
}

// findBlock locates a block by ID anywhere in the tree. Caller holds the
// tree lock.
func (s *Store) findBlock(blockID int64) *meta.LocatedBlock {
	var found *meta.LocatedBlock
	s.walk(s.root, func(n *node) {
		if found != nil || n.isDir {
			return
		}
		for i := range n.blocks {
			if n.blocks[i].Block.BlockID == blockID {
				found = &n.blocks[i]
				return
			}
		}
	})
	return found
}

func committedLength(n *node) int64 {
	var total int64
	for _, blk := range n.blocks {
		total += blk.Block.NumBytes
	}
	return total
}

func collectStorageIDs(nodes []meta.DatanodeInfo) []string {
	ids := make([]string, len(nodes))
	for i, dn := range nodes {
		ids[i] = dn.StorageID
	}
	return ids
}
