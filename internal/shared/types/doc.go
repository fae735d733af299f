// Package types provides the data structures the form manager exposes to
// its outer surfaces: the inspector API, the event stream and the CLI.
//
// Snapshots:
//   - FormSnapshot: one form, open or only cached
//   - GroupSnapshot: a group's stack, top first
//   - CacheSnapshot: cached forms, most recently used first
//   - Snapshot, Stats: the whole manager
//
// Events:
//   - FormEvent: one lifecycle transition, published after it happened
package types
