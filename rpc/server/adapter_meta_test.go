package server

import (
	"errors"
	"testing"

	"github.com/dfslabs/dfs/lib/meta"
	"github.com/dfslabs/dfs/lib/namespace"
	"github.com/dfslabs/dfs/rpc/common"
)

func activeAdapter(t *testing.T) (IRPCServerAdapter, *namespace.Store) {
	t.Helper()
	store := namespace.NewStore(namespace.RoleActive)
	t.Cleanup(func() { _ = store.Close() })
	return NewMetaServerAdapter(), store
}

func TestAdapterDispatchesNamespaceOps(t *testing.T) {
	adapter, store := activeAdapter(t)

	resp := adapter.Handle(common.NewMkdirsRequest("/a/b", 0, true), store)
	if resp.Err != "" || !resp.Ok {
		t.Fatalf("mkdirs response: %+v", resp)
	}

	resp = adapter.Handle(common.NewGetFileInfoRequest("/a/b"), store)
	if resp.Err != "" {
		t.Fatalf("getFileInfo response: %+v", resp)
	}
	if resp.MsgType != common.MsgTGetFileInfo || resp.Status == nil || !resp.Status.IsDir {
		t.Errorf("unexpected status response: %+v", resp)
	}
}

func TestAdapterEncodesStandbyError(t *testing.T) {
	adapter := NewMetaServerAdapter()
	store := namespace.NewStore(namespace.RoleStandby)
	defer store.Close()

	resp := adapter.Handle(common.NewGetFsStatsRequest(), store)
	if resp.ErrCode != common.ErrCodeStandby {
		t.Fatalf("err code = %v, want standby", resp.ErrCode)
	}

	// the client reconstructs a typed StandbyError carrying its own view
	// of the endpoint address
	err := common.DecodeError(resp, "node-1:8020")
	var standby *meta.StandbyError
	if !errors.As(err, &standby) {
		t.Fatalf("decoded %v, want StandbyError", err)
	}
	if standby.Addr != "node-1:8020" {
		t.Errorf("addr = %q, want node-1:8020", standby.Addr)
	}
}

func TestAdapterEncodesPathError(t *testing.T) {
	adapter, store := activeAdapter(t)

	resp := adapter.Handle(common.NewGetListingRequest("/missing", "", false), store)
	if resp.ErrCode != common.ErrCodePath {
		t.Fatalf("err code = %v, want path", resp.ErrCode)
	}

	err := common.DecodeError(resp, "node-1:8020")
	var pathErr *meta.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("decoded %v, want PathError", err)
	}
}

func TestAdapterEncodesLeaseError(t *testing.T) {
	adapter, store := activeAdapter(t)

	create := common.NewCreateRequest("/held", 0644, "writer", meta.FlagCreate, true, 1, 0)
	if resp := adapter.Handle(create, store); resp.Err != "" {
		t.Fatalf("create failed: %s", resp.Err)
	}

	resp := adapter.Handle(common.NewAddBlockRequest("/held", "intruder", nil, nil, 0), store)
	if resp.ErrCode != common.ErrCodeLease {
		t.Fatalf("err code = %v, want lease", resp.ErrCode)
	}

	// the typed value survives the wire, including who holds the lease
	err := common.DecodeError(resp, "node-1:8020")
	var lease *meta.LeaseError
	if !errors.As(err, &lease) {
		t.Fatalf("decoded %v, want LeaseError", err)
	}
	if lease.Path != "/held" || lease.Holder != "writer" {
		t.Errorf("lease error = %+v, want /held held by writer", lease)
	}
}

func TestAdapterRejectsUnknownMessageType(t *testing.T) {
	adapter, store := activeAdapter(t)

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTUnknown}, store)
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("unknown type response: %+v", resp)
	}
}

func TestAdapterRejectsNilService(t *testing.T) {
	adapter := NewMetaServerAdapter()

	resp := adapter.Handle(common.NewGetFsStatsRequest(), nil)
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("nil service response: %+v", resp)
	}
}
