// Package keyspace holds the committed database state: a mapping from
// keys to typed values with a lazily-expired TTL sidecar, plus the
// snapshot types exchanged with the persistence codec.
package keyspace
