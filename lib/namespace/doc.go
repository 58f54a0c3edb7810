// Package namespace provides an in-memory implementation of the metadata
// service interface (meta.IMetaService). It backs the dev server and the
// end-to-end tests of the RPC stack.
//
// The implementation covers the full operation surface: a hierarchical
// namespace (create, mkdirs, rename, delete, listing, attributes),
// simulated block allocation with generation stamps over a static set of
// datanodes, an exclusive write-lease table, and delegation tokens.
// Nothing is persisted; a restart loses the namespace.
//
// High Availability Role:
//
//	Every store carries a runtime-switchable role. An active store serves
//	all operations; a standby store refuses every operation with a
//	meta.StandbyError. This mirrors a replicated production deployment
//	closely enough to exercise client-side failover end to end:
//
//	  active := namespace.NewStore(namespace.RoleActive)
//	  standby := namespace.NewStore(namespace.RoleStandby)
//	  ...
//	  active.SetRole(namespace.RoleStandby)  // simulate a failover
//	  standby.SetRole(namespace.RoleActive)
//
// Concurrency:
//
//	The namespace tree is guarded by a single RWMutex since rename and
//	recursive delete require atomicity across several paths. The lease
//	and token tables are keyed by independent single paths and use
//	concurrent maps instead.
package namespace
