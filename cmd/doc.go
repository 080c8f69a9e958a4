// Package cmd implements the command-line interface for treekv, an
// in-memory, multi-client key/value store reachable over a raw TCP text
// protocol. It provides a hierarchical command structure for running the
// server and for exercising it manually as a client.
//
// The package is organized into subpackages:
//
//   - serve: starts and configures the treekv server
//   - client: a REPL for manually sending commands to a running server
//
// See treekv -help for a list of all commands.
package cmd
