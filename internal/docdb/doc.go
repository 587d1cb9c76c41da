// Package docdb implements a minimal file-backed document store.
//
// Each named collection is a single pretty-printed JSON array file inside the
// store's data directory. Records are open key/value objects carrying a
// system-assigned "_id" field. Mutations (insert, update, patch, delete) go
// through a per-collection pipeline that serializes read-modify-write cycles
// and keeps an in-memory mirror of the last written state; queries always
// re-read the backing file and never block behind a mutation.
package docdb
