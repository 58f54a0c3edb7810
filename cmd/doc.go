// Package cmd implements the command-line interface for the dFS metadata
// service. It provides a hierarchical command structure with operations for
// running a metadata server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - fs: Commands for filesystem metadata operations (mkdir, ls, stat, rm, etc.)
//   - token: Commands for delegation token management (get, renew, cancel)
//   - serve: Commands for starting and configuring a metadata server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dfs -help for a list of all commands.
package cmd
