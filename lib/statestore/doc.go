// Package statestore provides the typed persistence layer an agent uses to
// keep its state across restarts. It sits on top of any kvdb.Store, so the
// agent decides at startup whether its state lives in memory or in a
// durable engine, without the state handling code changing.
//
// State snapshots are JSON-encoded and schema-versioned. Every Save
// commits the snapshot together with a save counter in a single write
// transaction: after a crash at any point, either both are updated or
// neither is.
//
// The save counter is loop protection. An agent that crash-loops through
// the same state sequence keeps saving; once the counter reaches the bound
// Save fails with ConditionError, turning an invisible infinite loop into
// a diagnosable error. The agent resets the counter whenever it reaches a
// stable state.
package statestore
