package namespace

import (
	"errors"
	"testing"

	"github.com/dfslabs/dfs/lib/meta"
)

func activeStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(RoleActive)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustMkdirs(t *testing.T, s *Store, path string) {
	t.Helper()
	ok, err := s.Mkdirs(path, 0, true)
	if err != nil || !ok {
		t.Fatalf("Mkdirs(%s): ok=%v err=%v", path, ok, err)
	}
}

func mustCreate(t *testing.T, s *Store, path, client string) *meta.FileStatus {
	t.Helper()
	status, err := s.Create(path, 0, client, meta.FlagCreate, true, 0, 0)
	if err != nil {
		t.Fatalf("Create(%s): %v", path, err)
	}
	return status
}

// --------------------------------------------------------------------------
// Namespace
// --------------------------------------------------------------------------

func TestMkdirsAndStat(t *testing.T) {
	s := activeStore(t)
	mustMkdirs(t, s, "/data/logs")

	status, err := s.GetFileInfo("/data/logs")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if status == nil || !status.IsDir {
		t.Fatalf("status = %+v, want a directory", status)
	}
	if status.Permission != meta.DefaultDirPerm {
		t.Errorf("perm = %o, want %o", status.Permission, meta.DefaultDirPerm)
	}
}

func TestMkdirsWithoutParentFails(t *testing.T) {
	s := activeStore(t)

	_, err := s.Mkdirs("/a/b/c", 0, false)
	var pathErr *meta.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("got %v, want PathError", err)
	}
}

func TestGetFileInfoMissingPathIsNotAnError(t *testing.T) {
	s := activeStore(t)

	status, err := s.GetFileInfo("/nope")
	if err != nil || status != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", status, err)
	}
}

func TestCreateAssignsDefaultsAndFileID(t *testing.T) {
	s := activeStore(t)

	a := mustCreate(t, s, "/a", "writer")
	b := mustCreate(t, s, "/b", "writer")

	if a.Permission != meta.DefaultFilePerm {
		t.Errorf("perm = %o, want %o", a.Permission, meta.DefaultFilePerm)
	}
	if a.BlockSize != defaultBlockSize {
		t.Errorf("block size = %d, want %d", a.BlockSize, defaultBlockSize)
	}
	if a.FileID == b.FileID {
		t.Errorf("file IDs not unique: %d", a.FileID)
	}
}

func TestCreateExistingWithoutOverwriteFails(t *testing.T) {
	s := activeStore(t)
	mustCreate(t, s, "/a", "writer")
	_ = s.ReleaseLease("/a", "writer")

	_, err := s.Create("/a", 0, "writer", meta.FlagCreate, false, 0, 0)
	var pathErr *meta.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("got %v, want PathError", err)
	}

	if _, err := s.Create("/a", 0, "writer", meta.FlagCreate|meta.FlagOverwrite, false, 0, 0); err != nil {
		t.Fatalf("overwrite create: %v", err)
	}
}

func TestRenameSemantics(t *testing.T) {
	s := activeStore(t)
	mustMkdirs(t, s, "/dir")
	mustCreate(t, s, "/dir/a", "writer")

	// missing source
	if ok, err := s.Rename("/nope", "/x"); ok || err != nil {
		t.Errorf("rename of missing source: ok=%v err=%v, want false,nil", ok, err)
	}
	// existing target
	mustCreate(t, s, "/dir/b", "writer")
	if ok, err := s.Rename("/dir/a", "/dir/b"); ok || err != nil {
		t.Errorf("rename onto existing target: ok=%v err=%v, want false,nil", ok, err)
	}
	// success
	if ok, err := s.Rename("/dir/a", "/dir/c"); !ok || err != nil {
		t.Fatalf("rename: ok=%v err=%v", ok, err)
	}
	if status, _ := s.GetFileInfo("/dir/a"); status != nil {
		t.Error("source still exists after rename")
	}
	if status, _ := s.GetFileInfo("/dir/c"); status == nil {
		t.Error("target missing after rename")
	}
}

func TestRenameMovesLease(t *testing.T) {
	s := activeStore(t)
	mustCreate(t, s, "/a", "writer")

	if ok, err := s.Rename("/a", "/b"); !ok || err != nil {
		t.Fatalf("rename: ok=%v err=%v", ok, err)
	}

	// the lease followed the file, so a second writer must still be refused
	err := s.GetLease("/b", "other")
	var leaseErr *meta.LeaseError
	if !errors.As(err, &leaseErr) {
		t.Fatalf("got %v, want LeaseError", err)
	}
	if leaseErr.Holder != "writer" {
		t.Errorf("holder = %q, want writer", leaseErr.Holder)
	}
}

func TestDeleteSemantics(t *testing.T) {
	s := activeStore(t)
	mustMkdirs(t, s, "/dir/sub")

	if _, err := s.Delete("/dir", false); err == nil {
		t.Error("non-recursive delete of non-empty directory succeeded")
	}
	if ok, err := s.Delete("/dir", true); !ok || err != nil {
		t.Fatalf("recursive delete: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Delete("/dir", true); ok || err != nil {
		t.Errorf("delete of missing path: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestGetListingIsSortedAndPaged(t *testing.T) {
	s := activeStore(t)
	mustMkdirs(t, s, "/dir")
	for _, name := range []string{"c", "a", "b", "d"} {
		mustCreate(t, s, "/dir/"+name, "writer")
	}

	listing, err := s.GetListing("/dir", "", false)
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}
	want := []string{"/dir/a", "/dir/b", "/dir/c", "/dir/d"}
	if len(listing) != len(want) {
		t.Fatalf("got %d entries, want %d", len(listing), len(want))
	}
	for i, st := range listing {
		if st.Path != want[i] {
			t.Errorf("entry %d = %s, want %s", i, st.Path, want[i])
		}
	}

	page, err := s.GetListing("/dir", "b", false)
	if err != nil {
		t.Fatalf("GetListing after b: %v", err)
	}
	if len(page) != 2 || page[0].Path != "/dir/c" {
		t.Errorf("paged listing = %+v, want entries after b", page)
	}
}

func TestSetTimesNegativeLeavesUnchanged(t *testing.T) {
	s := activeStore(t)
	mustCreate(t, s, "/a", "writer")

	if err := s.SetTimes("/a", 1234, 5678); err != nil {
		t.Fatalf("SetTimes: %v", err)
	}
	if err := s.SetTimes("/a", -1, 9999); err != nil {
		t.Fatalf("SetTimes: %v", err)
	}

	status, _ := s.GetFileInfo("/a")
	if status.ModificationTime != 1234 {
		t.Errorf("mtime = %d, want 1234 (negative update must be ignored)", status.ModificationTime)
	}
	if status.AccessTime != 9999 {
		t.Errorf("atime = %d, want 9999", status.AccessTime)
	}
}

func TestRelativePathsRejected(t *testing.T) {
	s := activeStore(t)

	for _, path := range []string{"relative", "../up", "a/b"} {
		_, err := s.GetFileInfo(path)
		var pathErr *meta.PathError
		if !errors.As(err, &pathErr) {
			t.Errorf("path %q: got %v, want PathError", path, err)
		}
	}
}

// --------------------------------------------------------------------------
// Blocks
// --------------------------------------------------------------------------

func TestBlockAllocationLifecycle(t *testing.T) {
	s := activeStore(t)
	status := mustCreate(t, s, "/f", "writer")

	first, err := s.AddBlock("/f", "writer", nil, nil, status.FileID)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if len(first.Locations) == 0 {
		t.Fatal("block has no replica locations")
	}

	// commit the first block full, allocate the second
	committed := first.Block
	committed.NumBytes = 1024
	second, err := s.AddBlock("/f", "writer", &committed, nil, status.FileID)
	if err != nil {
		t.Fatalf("second AddBlock: %v", err)
	}
	if second.Block.BlockID == first.Block.BlockID {
		t.Error("block IDs not unique")
	}
	if second.Block.GenerationStamp <= first.Block.GenerationStamp {
		t.Error("generation stamps do not advance")
	}
	if second.Offset != 1024 {
		t.Errorf("second block offset = %d, want 1024", second.Offset)
	}

	last := second.Block
	last.NumBytes = 512
	if ok, err := s.Complete("/f", "writer", &last, status.FileID); !ok || err != nil {
		t.Fatalf("Complete: ok=%v err=%v", ok, err)
	}

	blocks, err := s.GetBlockLocations("/f", 0, 4096)
	if err != nil {
		t.Fatalf("GetBlockLocations: %v", err)
	}
	if blocks.FileLength != 1536 {
		t.Errorf("file length = %d, want 1536", blocks.FileLength)
	}
	if blocks.UnderConstruction {
		t.Error("file still under construction after Complete")
	}
	if len(blocks.Blocks) != 2 {
		t.Errorf("got %d blocks, want 2", len(blocks.Blocks))
	}
}

func TestAddBlockRequiresLease(t *testing.T) {
	s := activeStore(t)
	status := mustCreate(t, s, "/f", "writer")

	_, err := s.AddBlock("/f", "intruder", nil, nil, status.FileID)
	var leaseErr *meta.LeaseError
	if !errors.As(err, &leaseErr) {
		t.Fatalf("got %v, want LeaseError", err)
	}
}

func TestAbandonBlockRemovesIt(t *testing.T) {
	s := activeStore(t)
	status := mustCreate(t, s, "/f", "writer")

	blk, err := s.AddBlock("/f", "writer", nil, nil, status.FileID)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if err := s.AbandonBlock(blk.Block, "/f", "writer", status.FileID); err != nil {
		t.Fatalf("AbandonBlock: %v", err)
	}

	blocks, err := s.GetBlockLocations("/f", 0, 1)
	if err != nil {
		t.Fatalf("GetBlockLocations: %v", err)
	}
	if len(blocks.Blocks) != 0 {
		t.Errorf("abandoned block still listed: %+v", blocks.Blocks)
	}
}

func TestGetAdditionalDatanodeExcludes(t *testing.T) {
	s := activeStore(t)
	status := mustCreate(t, s, "/f", "writer")

	blk, err := s.AddBlock("/f", "writer", nil, nil, status.FileID)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	existing := blk.Locations[:1]
	excludes := blk.Locations[1:2]
	lb, err := s.GetAdditionalDatanode("/f", blk.Block, existing, blk.StorageIDs[:1], excludes, 1, "writer")
	if err != nil {
		t.Fatalf("GetAdditionalDatanode: %v", err)
	}
	for _, dn := range lb.Locations[1:] {
		if dn.StorageID == excludes[0].StorageID {
			t.Errorf("excluded node %s was selected", dn.StorageID)
		}
	}
}

func TestPipelineRecoveryBumpsGenerationStamp(t *testing.T) {
	s := activeStore(t)
	status := mustCreate(t, s, "/f", "writer")

	blk, err := s.AddBlock("/f", "writer", nil, nil, status.FileID)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	updated, err := s.UpdateBlockForPipeline(blk.Block, "writer")
	if err != nil {
		t.Fatalf("UpdateBlockForPipeline: %v", err)
	}
	if updated.Block.GenerationStamp <= blk.Block.GenerationStamp {
		t.Fatal("generation stamp did not advance")
	}

	newBlk := updated.Block
	newBlk.NumBytes = 100
	if err := s.UpdatePipeline("writer", blk.Block, newBlk, updated.Locations, updated.StorageIDs); err != nil {
		t.Fatalf("UpdatePipeline: %v", err)
	}

	// a recovery that rewinds the stamp must be refused
	stale := blk.Block
	if err := s.UpdatePipeline("writer", newBlk, stale, nil, nil); err == nil {
		t.Error("pipeline update with stale generation stamp succeeded")
	}
}

func TestTruncateTrimsBlocks(t *testing.T) {
	s := activeStore(t)
	status := mustCreate(t, s, "/f", "writer")

	blk, _ := s.AddBlock("/f", "writer", nil, nil, status.FileID)
	done := blk.Block
	done.NumBytes = 1000
	if ok, err := s.Complete("/f", "writer", &done, status.FileID); !ok || err != nil {
		t.Fatalf("Complete: ok=%v err=%v", ok, err)
	}

	if ok, err := s.Truncate("/f", 300, "writer"); !ok || err != nil {
		t.Fatalf("Truncate: ok=%v err=%v", ok, err)
	}
	info, _ := s.GetFileInfo("/f")
	if info.Length != 300 {
		t.Errorf("length = %d, want 300", info.Length)
	}

	if _, err := s.Truncate("/f", 400, "writer"); err == nil {
		t.Error("truncate beyond the file length succeeded")
	}
}

// --------------------------------------------------------------------------
// Leases
// --------------------------------------------------------------------------

func TestLeaseConflict(t *testing.T) {
	s := activeStore(t)
	mustMkdirs(t, s, "/d")

	if err := s.GetLease("/d/f", "alice"); err != nil {
		t.Fatalf("GetLease: %v", err)
	}
	// re-acquiring an own lease renews it
	if err := s.GetLease("/d/f", "alice"); err != nil {
		t.Fatalf("renewing own lease: %v", err)
	}

	err := s.GetLease("/d/f", "bob")
	var leaseErr *meta.LeaseError
	if !errors.As(err, &leaseErr) {
		t.Fatalf("got %v, want LeaseError", err)
	}

	if err := s.ReleaseLease("/d/f", "bob"); err == nil {
		t.Error("foreign release succeeded")
	}
	if err := s.ReleaseLease("/d/f", "alice"); err != nil {
		t.Fatalf("ReleaseLease: %v", err)
	}
	if err := s.GetLease("/d/f", "bob"); err != nil {
		t.Errorf("lease not free after release: %v", err)
	}
}

// --------------------------------------------------------------------------
// Tokens
// --------------------------------------------------------------------------

func TestDelegationTokenLifecycle(t *testing.T) {
	s := activeStore(t)

	token, err := s.GetDelegationToken("renewer")
	if err != nil {
		t.Fatalf("GetDelegationToken: %v", err)
	}
	if len(token.Identifier) == 0 || len(token.Password) == 0 {
		t.Fatalf("token missing material: %+v", token)
	}

	expiry, err := s.RenewDelegationToken(token)
	if err != nil {
		t.Fatalf("RenewDelegationToken: %v", err)
	}
	if expiry <= nowMillis() {
		t.Errorf("expiry %d is not in the future", expiry)
	}

	if err := s.CancelDelegationToken(token); err != nil {
		t.Fatalf("CancelDelegationToken: %v", err)
	}
	if _, err := s.RenewDelegationToken(token); err == nil {
		t.Error("renewed a cancelled token")
	}
	if err := s.CancelDelegationToken(token); err == nil {
		t.Error("cancelled a token twice")
	}
}

// --------------------------------------------------------------------------
// HA Role and Lifecycle
// --------------------------------------------------------------------------

func TestStandbyRefusesEveryOperation(t *testing.T) {
	s := NewStore(RoleStandby)
	defer s.Close()

	_, err := s.GetFileInfo("/x")
	var standby *meta.StandbyError
	if !errors.As(err, &standby) {
		t.Fatalf("got %v, want StandbyError", err)
	}

	if _, err := s.Mkdirs("/x", 0, true); !errors.As(err, &standby) {
		t.Errorf("Mkdirs on standby: got %v, want StandbyError", err)
	}
	if err := s.RenewLease("c"); !errors.As(err, &standby) {
		t.Errorf("RenewLease on standby: got %v, want StandbyError", err)
	}
	if _, err := s.GetDelegationToken("r"); !errors.As(err, &standby) {
		t.Errorf("GetDelegationToken on standby: got %v, want StandbyError", err)
	}
}

func TestRoleTransition(t *testing.T) {
	s := NewStore(RoleStandby)
	defer s.Close()

	s.SetRole(RoleActive)
	if _, err := s.Mkdirs("/x", 0, true); err != nil {
		t.Fatalf("Mkdirs after promotion: %v", err)
	}

	s.SetRole(RoleStandby)
	_, err := s.GetFileInfo("/x")
	var standby *meta.StandbyError
	if !errors.As(err, &standby) {
		t.Fatalf("got %v after demotion, want StandbyError", err)
	}
}

func TestFsStats(t *testing.T) {
	s := activeStore(t)
	status := mustCreate(t, s, "/f", "writer")
	blk, _ := s.AddBlock("/f", "writer", nil, nil, status.FileID)
	done := blk.Block
	done.NumBytes = 100
	_, _ = s.Complete("/f", "writer", &done, status.FileID)

	stats, err := s.GetFsStats()
	if err != nil {
		t.Fatalf("GetFsStats: %v", err)
	}
	if stats.TotalFiles != 1 || stats.TotalBlocks != 1 {
		t.Errorf("files=%d blocks=%d, want 1/1", stats.TotalFiles, stats.TotalBlocks)
	}
	if stats.Used == 0 || stats.Remaining != stats.Capacity-stats.Used {
		t.Errorf("inconsistent stats: %+v", stats)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	s := NewStore(RoleActive)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.GetFileInfo("/x"); !errors.Is(err, meta.ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
