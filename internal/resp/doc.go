// Package resp implements the RESP v2 wire protocol: the five-kind
// value model, a canonical encoder, and an incremental streaming parser
// with configurable protocol limits.
package resp
