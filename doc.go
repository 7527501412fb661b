// Package rewind implements a versioned-state engine. A Stack binds
// labeled getter/setter pairs to the properties of some target, captures
// point-in-time snapshots of their values, and restores any earlier
// snapshot on demand. Stacks can be joined into groups whose store and
// restore calls propagate to every member, and a Stack may bind a
// Serializer to persist its history to durable storage.
//
// Typical usage looks like:
//   - Create an Engine with configuration
//   - Create a Stack and bind properties with Bind or BindVar
//   - Call Store after meaningful mutations, Restore to step back
//   - Join related Stacks so they snapshot in lock step
//   - Register a Serializer (memory, file, Bolt, SQL, Postgres, Redis,
//     or etcd) to persist history across processes
//
// Restores are non-destructive: history is never truncated, so stepping
// back to an older snapshot still permits returning to a newer one.
package rewind
