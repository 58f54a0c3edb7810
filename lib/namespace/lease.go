package namespace

import (
	"strings"
	"time"

	"github.com/dfslabs/dfs/lib/meta"
)

// leaseLifetime is the hard limit after which a lease may be claimed by
// another client without an explicit release.
const leaseLifetime = 60 * time.Minute

// lease records the exclusive write grant for one path.
type lease struct {
	holder  string
	expires int64 // milliseconds since epoch
}

func (l *lease) expired() bool {
	return nowMillis() > l.expires
}

// --------------------------------------------------------------------------
// Lease Operations (docu see meta/interface.go)
// --------------------------------------------------------------------------

func (s *Store) GetLease(src, clientName string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if clientName == "" {
		return meta.NewPathError("getLease", src, "client name must not be empty")
	}
	return s.acquireLease(src, clientName)
}

func (s *Store) ReleaseLease(src, clientName string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	l, ok := s.leases.Load(src)
	if !ok {
		return nil
	}
	if l.holder != clientName {
		return &meta.LeaseError{Path: src, Holder: l.holder}
	}
	s.leases.Delete(src)
	return nil
}

func (s *Store) RenewLease(clientName string) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	expires := nowMillis() + leaseLifetime.Milliseconds()
	s.leases.Range(func(path string, l *lease) bool {
		if l.holder == clientName {
			s.leases.Store(path, &lease{holder: clientName, expires: expires})
		}
		return true
	})
	return nil
}

// --------------------------------------------------------------------------
// Internal lease table helpers
// --------------------------------------------------------------------------

// acquireLease grants the write lease of src to clientName. Re-acquiring a
// lease the client already holds renews it; an expired foreign lease is
// taken over silently.
func (s *Store) acquireLease(src, clientName string) error {
	grant := &lease{holder: clientName, expires: nowMillis() + leaseLifetime.Milliseconds()}

	var conflict *meta.LeaseError
	s.leases.Compute(src, func(old *lease, loaded bool) (*lease, bool) {
		if loaded && old.holder != clientName && !old.expired() {
			conflict = &meta.LeaseError{Path: src, Holder: old.holder}
			return old, false
		}
		return grant, false
	})
	if conflict != nil {
		return conflict
	}
	return nil
}

// checkLease verifies that clientName currently holds the lease of src.
func (s *Store) checkLease(src, clientName string) error {
	l, ok := s.leases.Load(src)
	if !ok || l.holder != clientName || l.expired() {
		holder := ""
		if ok {
			holder = l.holder
		}
		return &meta.LeaseError{Path: src, Holder: holder}
	}
	return nil
}

func (s *Store) releaseLeaseIfHolder(src, clientName string) {
	if l, ok := s.leases.Load(src); ok && l.holder == clientName {
		s.leases.Delete(src)
	}
}

// moveLease rewrites lease keys when a path (or a subtree) is renamed.
func (s *Store) moveLease(src, dst string) {
	s.leases.Range(func(path string, l *lease) bool {
		if path == src || strings.HasPrefix(path, src+"/") {
			s.leases.Delete(path)
			s.leases.Store(dst+path[len(src):], l)
		}
		return true
	})
}

// dropLeases removes every lease under a deleted path.
func (s *Store) dropLeases(src string) {
	s.leases.Range(func(path string, _ *lease) bool {
		if path == src || strings.HasPrefix(path, src+"/") {
			s.leases.Delete(path)
		}
		return true
	})
}
