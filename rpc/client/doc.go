// Package client provides the client side of the dFS metadata RPC protocol.
//
// The package exposes a single constructor, NewMetaProxy, which returns a
// meta.IMetaService backed by one or more redundant metadata instances.
// Each configured endpoint is served by its own connection pool; the proxy
// layer on top tracks which instance is currently active and transparently
// fails over to the next candidate when the active instance reports standby
// state or becomes unreachable.
//
// Failover is bounded: with N endpoints and a retry budget of R, a single
// call makes at most R+1 attempts before surfacing a meta.RPCError carrying
// the last underlying failure. Business errors (path errors, lease
// conflicts, ...) are never retried and propagate to the caller unchanged.
//
// Example:
//
//	svc, err := client.NewMetaProxy(config, tcp.NewTCPClientTransport,
//		serializer.GobSerializer, &meta.Credentials{User: "alice"})
//	if err != nil {
//		...
//	}
//	defer svc.Close()
//
//	status, err := svc.GetFileInfo("/data/logs")
package client
