// Package snapshot persists the keyspace to disk and restores it. The
// file is a 5-byte MRDB header followed by a single RESP array; writes
// replace the previous file atomically via sibling .tmp/.bak renames,
// and loads are all-or-nothing.
package snapshot
