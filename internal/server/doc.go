// Package server accepts TCP connections speaking RESP v2 and drives
// one session per connection: receive, parse, execute on the shared
// single-writer strand, send. Protocol errors produce a final error
// reply and close the connection.
package server
