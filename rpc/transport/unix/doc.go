// Package unix provides the Unix domain socket implementation of the RPC
// transport interfaces. It is the preferred transport for co-located
// processes and for tests, avoiding the TCP stack entirely.
package unix
