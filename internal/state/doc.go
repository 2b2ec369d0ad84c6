// Package state persists per-item sync baselines in a BBolt database.
//
// Database structure uses two buckets:
//   - meta: active backend kind, generation ID, last update timestamp
//   - items: per-item {lastKnownLocalHash, lastKnownVaultHash, lastSyncedAt}
//
// Baselines are only valid for one backend generation. Switching backends
// starts a fresh generation and drops every baseline, forcing first-time
// classification until new baselines are established.
//
// BBolt provides ACID transactions, file locking, and corruption detection;
// the engine commits all of a run's baseline updates in a single
// transaction so an interrupt can never leave partial state behind.
package state
