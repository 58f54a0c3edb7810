package client

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/lib/namespace"
	"github.com/dfslabs/dfs/rpc/common"
	"github.com/dfslabs/dfs/rpc/serializer"
	"github.com/dfslabs/dfs/rpc/server"
	"github.com/dfslabs/dfs/rpc/transport/unix"
)

// testCluster is a pair of metadata servers over unix sockets, one active
// and one standby, plus a proxy client wired to both.
type testCluster struct {
	stores  []*namespace.Store
	servers []*server.RPCServer
	proxy   *metaProxy
}

func startCluster(t *testing.T, roles ...namespace.Role) *testCluster {
	t.Helper()

	dir := t.TempDir()
	cluster := &testCluster{}

	config := common.ClientConfig{
		MaxHARetry:             4,
		TimeoutSecond:          2,
		ConnectionsPerEndpoint: 1,
	}

	var endpoints []haEndpoint
	for i, role := range roles {
		sock := filepath.Join(dir, fmt.Sprintf("meta-%d.sock", i))

		store := namespace.NewStore(role)
		srv := server.NewRPCServer(common.ServerConfig{
			Endpoint:      sock,
			Role:          role.String(),
			TimeoutSecond: 2,
			LogLevel:      "error",
		}, store, unix.NewUnixServerTransport(), serializer.NewJSONSerializer())

		go func() {
			if err := srv.Serve(); err != nil {
				t.Errorf("server %d: %v", i, err)
			}
		}()

		cluster.stores = append(cluster.stores, store)
		cluster.servers = append(cluster.servers, srv)
		endpoints = append(endpoints, haEndpoint{
			addr: sock,
			svc:  newRemoteMeta(sock, config, unix.NewUnixClientTransport, serializer.NewJSONSerializer(), nil),
		})
	}

	// unshuffled proxy so the first attempt deterministically hits roles[0]
	cluster.proxy = &metaProxy{endpoints: endpoints}
	if len(endpoints) > 1 {
		cluster.proxy.haEnabled = true
		cluster.proxy.maxRetry = config.MaxHARetry
	}

	t.Cleanup(func() {
		_ = cluster.proxy.Close()
		for _, srv := range cluster.servers {
			_ = srv.Shutdown()
		}
	})

	cluster.waitReady(t)
	return cluster
}

// waitReady blocks until every server answers on its socket. A standby
// answering with a standby refusal counts as ready.
func (c *testCluster) waitReady(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)

	for _, ep := range c.proxy.endpoints {
		for {
			_, err := ep.svc.GetFsStats()
			var failover *meta.FailoverError
			if err == nil || !errors.As(err, &failover) {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("server on %s did not come up: %v", ep.addr, err)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
}

func TestEndToEndFailover(t *testing.T) {
	cluster := startCluster(t, namespace.RoleStandby, namespace.RoleActive)
	svc := cluster.proxy

	// first call lands on the standby and must fail over transparently
	if ok, err := svc.Mkdirs("/data", meta.DefaultDirPerm, true); !ok || err != nil {
		t.Fatalf("Mkdirs: ok=%v err=%v", ok, err)
	}

	status, err := svc.Create("/data/f", 0, "e2e-client", meta.FlagCreate, false, 0, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	blk, err := svc.AddBlock("/data/f", "e2e-client", nil, nil, status.FileID)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	done := blk.Block
	done.NumBytes = 256
	if ok, err := svc.Complete("/data/f", "e2e-client", &done, status.FileID); !ok || err != nil {
		t.Fatalf("Complete: ok=%v err=%v", ok, err)
	}

	located, err := svc.GetBlockLocations("/data/f", 0, 1024)
	if err != nil {
		t.Fatalf("GetBlockLocations: %v", err)
	}
	if located.FileLength != 256 || len(located.Blocks) != 1 {
		t.Errorf("located = %+v, want one block of 256 bytes", located)
	}

	// only one failover should have happened for the whole sequence
	if svc.current != 1 {
		t.Errorf("current = %d, want the proxy pinned to the active instance", svc.current)
	}
}

func TestEndToEndRoleSwap(t *testing.T) {
	cluster := startCluster(t, namespace.RoleActive, namespace.RoleStandby)
	svc := cluster.proxy

	if ok, err := svc.Mkdirs("/swap", meta.DefaultDirPerm, true); !ok || err != nil {
		t.Fatalf("Mkdirs: ok=%v err=%v", ok, err)
	}

	// demote the first instance, promote the second
	cluster.stores[0].SetRole(namespace.RoleStandby)
	cluster.stores[1].SetRole(namespace.RoleActive)

	// the next call must fail over to the new active instance
	if ok, err := svc.Mkdirs("/after-swap", meta.DefaultDirPerm, true); !ok || err != nil {
		t.Fatalf("Mkdirs after swap: ok=%v err=%v", ok, err)
	}
	if svc.current != 1 {
		t.Errorf("current = %d, want 1 after the swap", svc.current)
	}
}

func TestEndToEndBusinessErrorsSurvives(t *testing.T) {
	cluster := startCluster(t, namespace.RoleActive, namespace.RoleStandby)
	svc := cluster.proxy

	// a business error must cross the wire typed, without triggering failover
	_, err := svc.GetListing("/missing", "", false)
	var pathErr *meta.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("got %v, want PathError across the wire", err)
	}
	if svc.current != 0 {
		t.Errorf("business error moved the active pointer to %d", svc.current)
	}
}

func TestEndToEndExhaustion(t *testing.T) {
	cluster := startCluster(t, namespace.RoleStandby, namespace.RoleStandby)
	svc := cluster.proxy

	_, err := svc.GetFsStats()
	var rpcErr *meta.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("got %v, want RPCError", err)
	}
	if rpcErr.Attempts != svc.maxRetry+1 {
		t.Errorf("attempts = %d, want %d", rpcErr.Attempts, svc.maxRetry+1)
	}
	var standby *meta.StandbyError
	if !errors.As(err, &standby) {
		t.Errorf("terminal error does not unwrap to a StandbyError: %v", err)
	}
}
