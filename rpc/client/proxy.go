package client

import (
	"errors"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/rpc/common"
	"github.com/dfslabs/dfs/rpc/serializer"
	"github.com/dfslabs/dfs/rpc/transport"
)

var (
	failoverTotal  = metrics.NewCounter("dfs_ha_failovers_total")
	exhaustedTotal = metrics.NewCounter("dfs_ha_exhausted_total")
)

// --------------------------------------------------------------------------
// HA Proxy
// --------------------------------------------------------------------------

// haEndpoint pairs a service handle with the address it was built from,
// so failover log lines and errors can name the instance.
type haEndpoint struct {
	addr string
	svc  meta.IMetaService
}

// metaProxy implements meta.IMetaService over a set of redundant metadata
// instances. It forwards every call to the instance currently believed to
// be active and fails over to the next candidate when that instance reports
// it is standby or is unreachable.
//
// The only shared mutable state is the current index. The mutex is held
// only while reading or advancing the index and never across a remote call,
// so a hung instance cannot block other callers' placement decisions.
type metaProxy struct {
	mu        sync.Mutex
	endpoints []haEndpoint
	current   uint32

	// Fixed at construction
	haEnabled bool
	maxRetry  int
}

// NewMetaProxy creates a metadata client over the configured endpoint set.
//
// One service handle is built per configured host:port address (an address
// that does not decompose into host and port fails construction with
// *meta.InvalidAddressError). The resulting set is shuffled once so that
// many clients starting at the same time do not all probe the same nominal
// first instance. HA failover is enabled iff more than one endpoint is
// configured; with a single endpoint the retry bound is forced to 0 and
// every placement failure is terminal.
//
// The auth credentials are passed through unchanged to every instance.
func NewMetaProxy(
	config common.ClientConfig,
	factory transport.ClientFactory,
	serializer serializer.IRPCSerializer,
	auth *meta.Credentials,
) (meta.IMetaService, error) {
	if len(config.Endpoints) == 0 {
		return nil, &meta.InvalidAddressError{Addr: ""}
	}

	endpoints := make([]haEndpoint, 0, len(config.Endpoints))
	for _, addr := range config.Endpoints {
		// absolute paths name unix sockets, everything else must be host:port
		if !strings.HasPrefix(addr, "/") {
			host, port, err := net.SplitHostPort(addr)
			if err != nil || host == "" || port == "" {
				return nil, &meta.InvalidAddressError{Addr: addr}
			}
		}
		endpoints = append(endpoints, haEndpoint{
			addr: addr,
			svc:  newRemoteMeta(addr, config, factory, serializer, auth),
		})
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return newMetaProxy(endpoints, config.MaxHARetry, rnd), nil
}

// newMetaProxy assembles the proxy from prebuilt endpoints. The random
// source is injected so tests can pin a seed and assert the resulting
// order deterministically.
func newMetaProxy(endpoints []haEndpoint, maxRetry int, rnd *rand.Rand) *metaProxy {
	rnd.Shuffle(len(endpoints), func(i, j int) {
		endpoints[i], endpoints[j] = endpoints[j], endpoints[i]
	})

	p := &metaProxy{endpoints: endpoints}
	if len(endpoints) > 1 {
		p.haEnabled = true
		p.maxRetry = maxRetry
	}
	return p
}

// --------------------------------------------------------------------------
// Active Pointer
// --------------------------------------------------------------------------

// getActive returns the endpoint currently believed to be active plus the
// index value observed under the lock. The observed value lets a caller
// detect whether another caller already failed over past its snapshot.
func (p *metaProxy) getActive() (haEndpoint, uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return haEndpoint{}, 0, meta.ErrClosed
	}
	return p.endpoints[int(p.current)%len(p.endpoints)], p.current, nil
}

// failoverToNext advances the active pointer to the next candidate, unless
// another caller already advanced it past the observed snapshot. This keeps
// N concurrent discoveries of the same dead instance to exactly one
// logical failover.
func (p *metaProxy) failoverToNext(observed uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return
	}
	if observed != p.current {
		// already failed over in another goroutine
		return
	}

	p.current = (p.current + 1) % uint32(len(p.endpoints))
	failoverTotal.Inc()
}

// Close clears the endpoint set and closes every service handle. It is
// idempotent; operations invoked after Close fail with meta.ErrClosed.
func (p *metaProxy) Close() error {
	p.mu.Lock()
	endpoints := p.endpoints
	p.endpoints = nil
	p.mu.Unlock()

	// Handles are closed outside the lock, a slow transport shutdown must
	// not block concurrent getActive calls
	var firstErr error
	for _, ep := range endpoints {
		if err := ep.svc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// --------------------------------------------------------------------------
// Retry Coordinator
// --------------------------------------------------------------------------

// invokeHA runs op against the active endpoint, failing over on placement
// errors until op succeeds or the retry bound is exhausted.
//
// Retry convention: maxRetry bounds the number of failovers permitted after
// the first attempt, so a call makes at most maxRetry+1 attempts in total.
// The attempt count carried by a terminal RPCError is the number of
// attempts actually made.
//
// Two error classes are retryable. A StandbyError is authoritative (a live
// instance said "not me"), so it is retried as-is and also surfaced as-is
// inside the terminal RPCError. A FailoverError is inferred from a channel
// symptom; on exhaustion its wrapped cause is unwrapped so the caller sees
// the real underlying failure. A FailoverError without a cause at that
// point is an internal invariant breach and aborts. Every other error is
// a business error and propagates untouched with no retry and no pointer
// movement.
func invokeHA[T any](p *metaProxy, op func(svc meta.IMetaService) (T, error)) (T, error) {
	var zero T
	attempts := 0

	for {
		ep, observed, err := p.getActive()
		if err != nil {
			return zero, err
		}

		res, err := op(ep.svc)
		if err == nil {
			return res, nil
		}

		var standby *meta.StandbyError
		var failover *meta.FailoverError
		switch {
		case errors.As(err, &standby):
			if !p.haEnabled || attempts >= p.maxRetry {
				exhaustedTotal.Inc()
				Logger.Errorf("Cannot fail over to another metadata instance, attempt count is %d", attempts+1)
				return zero, &meta.RPCError{Attempts: attempts + 1, Cause: err}
			}

		case errors.As(err, &failover):
			if !p.haEnabled || attempts >= p.maxRetry {
				cause := failover.Cause
				if cause == nil {
					// a FailoverError is only ever built around a transport
					// failure; reaching exhaustion without one is a defect,
					// not a runtime condition
					Logger.Panicf("failover error from %s carries no cause", ep.addr)
				}
				exhaustedTotal.Inc()
				Logger.Errorf("Cannot fail over to another metadata instance, attempt count is %d", attempts+1)
				return zero, &meta.RPCError{Attempts: attempts + 1, Cause: cause}
			}

		default:
			// not a placement failure
			return zero, err
		}

		attempts++
		p.failoverToNext(observed)
		Logger.Warningf("Failing over to another metadata instance, attempt count is %d", attempts)
	}
}

// invokeHAVoid adapts operations without a return value to invokeHA
func invokeHAVoid(p *metaProxy, op func(svc meta.IMetaService) error) error {
	_, err := invokeHA(p, func(svc meta.IMetaService) (struct{}, error) {
		return struct{}{}, op(svc)
	})
	return err
}

// --------------------------------------------------------------------------
// Forwarding Surface (operation contracts documented on meta.IMetaService)
//
// Each method is exactly one call through the retry coordinator; the
// per-operation semantics are defined entirely by the instance the call
// lands on.
// --------------------------------------------------------------------------

func (p *metaProxy) GetBlockLocations(src string, offset, length int64) (*meta.LocatedBlocks, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.LocatedBlocks, error) {
		return svc.GetBlockLocations(src, offset, length)
	})
}

func (p *metaProxy) Create(src string, perm meta.Permission, clientName string, flag meta.CreateFlag,
	createParent bool, replication uint16, blockSize int64) (*meta.FileStatus, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.FileStatus, error) {
		return svc.Create(src, perm, clientName, flag, createParent, replication, blockSize)
	})
}

func (p *metaProxy) Append(src, clientName string, flag meta.CreateFlag) (*meta.LocatedBlock, *meta.FileStatus, error) {
	type appendResult struct {
		lb     *meta.LocatedBlock
		status *meta.FileStatus
	}
	res, err := invokeHA(p, func(svc meta.IMetaService) (appendResult, error) {
		lb, status, err := svc.Append(src, clientName, flag)
		return appendResult{lb, status}, err
	})
	return res.lb, res.status, err
}

func (p *metaProxy) SetReplication(src string, replication uint16) (bool, error) {
	return invokeHA(p, func(svc meta.IMetaService) (bool, error) {
		return svc.SetReplication(src, replication)
	})
}

func (p *metaProxy) SetPermission(src string, perm meta.Permission) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.SetPermission(src, perm)
	})
}

func (p *metaProxy) SetOwner(src, owner, group string) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.SetOwner(src, owner, group)
	})
}

func (p *metaProxy) AbandonBlock(blk meta.ExtendedBlock, src, holder string, fileID int64) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.AbandonBlock(blk, src, holder, fileID)
	})
}

func (p *metaProxy) AddBlock(src, clientName string, previous *meta.ExtendedBlock,
	excludeNodes []meta.DatanodeInfo, fileID int64) (*meta.LocatedBlock, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.LocatedBlock, error) {
		return svc.AddBlock(src, clientName, previous, excludeNodes, fileID)
	})
}

func (p *metaProxy) GetAdditionalDatanode(src string, blk meta.ExtendedBlock, existing []meta.DatanodeInfo,
	storageIDs []string, excludes []meta.DatanodeInfo, numAdditional int, clientName string) (*meta.LocatedBlock, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.LocatedBlock, error) {
		return svc.GetAdditionalDatanode(src, blk, existing, storageIDs, excludes, numAdditional, clientName)
	})
}

func (p *metaProxy) Complete(src, clientName string, last *meta.ExtendedBlock, fileID int64) (bool, error) {
	return invokeHA(p, func(svc meta.IMetaService) (bool, error) {
		return svc.Complete(src, clientName, last, fileID)
	})
}

func (p *metaProxy) Rename(src, dst string) (bool, error) {
	return invokeHA(p, func(svc meta.IMetaService) (bool, error) {
		return svc.Rename(src, dst)
	})
}

func (p *metaProxy) Truncate(src string, size int64, clientName string) (bool, error) {
	return invokeHA(p, func(svc meta.IMetaService) (bool, error) {
		return svc.Truncate(src, size, clientName)
	})
}

func (p *metaProxy) GetLease(src, clientName string) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.GetLease(src, clientName)
	})
}

func (p *metaProxy) ReleaseLease(src, clientName string) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.ReleaseLease(src, clientName)
	})
}

func (p *metaProxy) RenewLease(clientName string) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.RenewLease(clientName)
	})
}

func (p *metaProxy) Delete(src string, recursive bool) (bool, error) {
	return invokeHA(p, func(svc meta.IMetaService) (bool, error) {
		return svc.Delete(src, recursive)
	})
}

func (p *metaProxy) Mkdirs(src string, perm meta.Permission, createParent bool) (bool, error) {
	return invokeHA(p, func(svc meta.IMetaService) (bool, error) {
		return svc.Mkdirs(src, perm, createParent)
	})
}

func (p *metaProxy) GetListing(src, startAfter string, needLocation bool) ([]meta.FileStatus, error) {
	return invokeHA(p, func(svc meta.IMetaService) ([]meta.FileStatus, error) {
		return svc.GetListing(src, startAfter, needLocation)
	})
}

func (p *metaProxy) GetFsStats() (*meta.FsStats, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.FsStats, error) {
		return svc.GetFsStats()
	})
}

func (p *metaProxy) GetFileInfo(src string) (*meta.FileStatus, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.FileStatus, error) {
		return svc.GetFileInfo(src)
	})
}

func (p *metaProxy) Fsync(src, clientName string) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.Fsync(src, clientName)
	})
}

func (p *metaProxy) SetTimes(src string, mtime, atime int64) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.SetTimes(src, mtime, atime)
	})
}

func (p *metaProxy) UpdateBlockForPipeline(blk meta.ExtendedBlock, clientName string) (*meta.LocatedBlock, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.LocatedBlock, error) {
		return svc.UpdateBlockForPipeline(blk, clientName)
	})
}

func (p *metaProxy) UpdatePipeline(clientName string, oldBlk, newBlk meta.ExtendedBlock,
	newNodes []meta.DatanodeInfo, storageIDs []string) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.UpdatePipeline(clientName, oldBlk, newBlk, newNodes, storageIDs)
	})
}

func (p *metaProxy) GetDelegationToken(renewer string) (*meta.Token, error) {
	return invokeHA(p, func(svc meta.IMetaService) (*meta.Token, error) {
		return svc.GetDelegationToken(renewer)
	})
}

func (p *metaProxy) RenewDelegationToken(token *meta.Token) (int64, error) {
	return invokeHA(p, func(svc meta.IMetaService) (int64, error) {
		return svc.RenewDelegationToken(token)
	})
}

func (p *metaProxy) CancelDelegationToken(token *meta.Token) error {
	return invokeHAVoid(p, func(svc meta.IMetaService) error {
		return svc.CancelDelegationToken(token)
	})
}
