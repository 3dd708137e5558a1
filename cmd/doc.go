// Package cmd implements the command-line interface for the tKV transactional
// key-value store. It provides a hierarchical command structure with operations
// for inspecting and manipulating a store through any of the supported engines.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, set, del, has, import, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See tkv -help for a list of all commands.
package cmd
