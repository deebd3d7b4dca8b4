// Package processor executes commands against the keyspace. It is the
// single writer: every command in the system flows through one
// Processor serialised on the server's strand, so handlers mutate the
// store without locking.
package processor
