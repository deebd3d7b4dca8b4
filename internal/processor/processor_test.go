package processor

import (
	"strconv"
	"testing"
	"time"

	"github.com/yndnr/miniredis-go/internal/keyspace"
	"github.com/yndnr/miniredis-go/internal/resp"
)

// testClock is an adjustable wall clock shared by store and processor.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1700000000, 0)}
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestProcessor(t *testing.T, opts ...Option) (*Processor, *testClock) {
	t.Helper()
	clock := newTestClock()
	store := keyspace.New(keyspace.WithClock(clock.Now))
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(store, opts...), clock
}

// command builds a RESP command array from string arguments.
func command(args ...string) resp.Data {
	elems := make([]resp.Data, 0, len(args))
	for _, arg := range args {
		elems = append(elems, resp.BulkStringText(arg))
	}
	return resp.Array(elems...)
}

func mustExec(t *testing.T, p *Processor, args ...string) resp.Data {
	t.Helper()
	return p.Execute(command(args...))
}

func assertReply(t *testing.T, got, want resp.Data) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("reply = %s, want %s", got.Encode(), want.Encode())
	}
}

func TestExecute_RejectsMalformedCommands(t *testing.T) {
	p, _ := newTestProcessor(t)
	want := resp.SimpleError("ERR Protocol error: expected array of bulk strings")

	tests := []struct {
		name string
		cmd  resp.Data
	}{
		{"not an array", resp.SimpleString("PING")},
		{"null array", resp.NullArray()},
		{"empty array", resp.Array()},
		{"non-bulk element", resp.Array(resp.BulkStringText("GET"), resp.SimpleString("FOO"))},
		{"null bulk element", resp.Array(resp.BulkStringText("GET"), resp.NullBulkString())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertReply(t, p.Execute(tt.cmd), want)
		})
	}
}

func TestExecute_UnknownCommandPreservesCase(t *testing.T) {
	p, _ := newTestProcessor(t)
	assertReply(t, mustExec(t, p, "FooBar"),
		resp.SimpleError("ERR unknown command 'FooBar'"))
}

func TestExecute_CommandNameCaseInsensitive(t *testing.T) {
	p, _ := newTestProcessor(t)
	assertReply(t, mustExec(t, p, "ping"), resp.SimpleString("PONG"))
	assertReply(t, mustExec(t, p, "PiNg"), resp.SimpleString("PONG"))
}

func TestPing(t *testing.T) {
	p, _ := newTestProcessor(t)
	assertReply(t, mustExec(t, p, "PING"), resp.SimpleString("PONG"))
	assertReply(t, mustExec(t, p, "PING", "hello"), resp.BulkStringText("hello"))
	assertReply(t, mustExec(t, p, "PING", "a", "b"),
		resp.SimpleError("ERR wrong number of arguments for 'ping' command"))
}

func TestSetGet(t *testing.T) {
	p, _ := newTestProcessor(t)
	assertReply(t, mustExec(t, p, "SET", "foo", "bar"), resp.SimpleString("OK"))
	assertReply(t, mustExec(t, p, "GET", "foo"), resp.BulkStringText("bar"))
	assertReply(t, mustExec(t, p, "GET", "missing"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "GET"),
		resp.SimpleError("ERR wrong number of arguments for 'get' command"))
	assertReply(t, mustExec(t, p, "SET", "foo"),
		resp.SimpleError("ERR wrong number of arguments for 'set' command"))
}

func TestGet_IntegerFormatsAsDecimal(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "SET", "n", "41")
	mustExec(t, p, "INCR", "n")
	assertReply(t, mustExec(t, p, "GET", "n"), resp.BulkStringText("42"))
}

func TestGet_WrongType(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "RPUSH", "l", "a")
	assertReply(t, mustExec(t, p, "GET", "l"),
		resp.SimpleError("WRONGTYPE Operation against a key holding the wrong kind of value"))
}

func TestSet_NXXX(t *testing.T) {
	p, _ := newTestProcessor(t)

	// XX on a missing key aborts without insert.
	assertReply(t, mustExec(t, p, "SET", "k", "v", "XX"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "GET", "k"), resp.NullBulkString())

	// NX on a missing key writes.
	assertReply(t, mustExec(t, p, "SET", "k", "v1", "NX"), resp.SimpleString("OK"))

	// NX on an existing key aborts without update.
	assertReply(t, mustExec(t, p, "SET", "k", "v2", "NX"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "GET", "k"), resp.BulkStringText("v1"))

	// XX on an existing key writes.
	assertReply(t, mustExec(t, p, "SET", "k", "v3", "XX"), resp.SimpleString("OK"))
	assertReply(t, mustExec(t, p, "GET", "k"), resp.BulkStringText("v3"))
}

func TestSet_Get(t *testing.T) {
	p, _ := newTestProcessor(t)

	assertReply(t, mustExec(t, p, "SET", "k", "v1", "GET"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "SET", "k", "v2", "GET"), resp.BulkStringText("v1"))

	// GET with NX abort still returns the prior value.
	assertReply(t, mustExec(t, p, "SET", "k", "v3", "NX", "GET"), resp.BulkStringText("v2"))
	assertReply(t, mustExec(t, p, "GET", "k"), resp.BulkStringText("v2"))

	// GET converts a native integer via decimal formatting.
	mustExec(t, p, "SET", "n", "41")
	mustExec(t, p, "INCR", "n")
	assertReply(t, mustExec(t, p, "SET", "n", "v", "GET"), resp.BulkStringText("42"))

	// GET against a list value is a type error.
	mustExec(t, p, "RPUSH", "l", "a")
	assertReply(t, mustExec(t, p, "SET", "l", "v", "GET"),
		resp.SimpleError("WRONGTYPE Operation against a key holding the wrong kind of value"))
}

func TestSet_SyntaxErrors(t *testing.T) {
	p, _ := newTestProcessor(t)
	syntax := resp.SimpleError("ERR syntax error")

	tests := [][]string{
		{"SET", "k", "v", "NX", "XX"},
		{"SET", "k", "v", "XX", "NX"},
		{"SET", "k", "v", "GET", "GET"},
		{"SET", "k", "v", "EX", "10", "KEEPTTL"},
		{"SET", "k", "v", "KEEPTTL", "EX", "10"},
		{"SET", "k", "v", "EX", "10", "PX", "100"},
		{"SET", "k", "v", "EX"},
		{"SET", "k", "v", "BOGUS"},
	}
	for _, args := range tests {
		assertReply(t, mustExec(t, p, args...), syntax)
	}

	assertReply(t, mustExec(t, p, "SET", "k", "v", "EX", "abc"),
		resp.SimpleError("ERR value is not an integer or out of range"))
	assertReply(t, mustExec(t, p, "SET", "k", "v", "EX", "0"),
		resp.SimpleError("ERR value is out of range, must be positive"))
	assertReply(t, mustExec(t, p, "SET", "k", "v", "EX", "-1"),
		resp.SimpleError("ERR value is out of range, must be positive"))
}

func TestSet_Expiration(t *testing.T) {
	p, clock := newTestProcessor(t)

	mustExec(t, p, "SET", "k", "v", "PX", "50")
	clock.Advance(100 * time.Millisecond)
	assertReply(t, mustExec(t, p, "GET", "k"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "TTL", "k"), resp.Integer(-2))

	mustExec(t, p, "SET", "k", "v", "EX", "10")
	assertReply(t, mustExec(t, p, "TTL", "k"), resp.Integer(10))

	// A plain SET clears the TTL.
	mustExec(t, p, "SET", "k", "v2")
	assertReply(t, mustExec(t, p, "TTL", "k"), resp.Integer(-1))

	// KEEPTTL preserves it.
	mustExec(t, p, "SET", "k", "v", "EX", "10")
	mustExec(t, p, "SET", "k", "v3", "KEEPTTL")
	assertReply(t, mustExec(t, p, "TTL", "k"), resp.Integer(10))
}

func TestSet_AbsoluteExpiration(t *testing.T) {
	p, clock := newTestProcessor(t)

	at := clock.Now().Add(20 * time.Second)
	mustExec(t, p, "SET", "k", "v", "EXAT", formatInt(at.Unix()))
	assertReply(t, mustExec(t, p, "TTL", "k"), resp.Integer(20))

	mustExec(t, p, "SET", "m", "v", "PXAT", formatInt(at.UnixMilli()))
	assertReply(t, mustExec(t, p, "PTTL", "m"), resp.Integer(20000))
}

func TestIncrDecr(t *testing.T) {
	p, _ := newTestProcessor(t)

	assertReply(t, mustExec(t, p, "INCR", "n"), resp.Integer(1))
	assertReply(t, mustExec(t, p, "INCR", "n"), resp.Integer(2))
	assertReply(t, mustExec(t, p, "INCRBY", "n", "10"), resp.Integer(12))
	assertReply(t, mustExec(t, p, "DECR", "n"), resp.Integer(11))
	assertReply(t, mustExec(t, p, "DECRBY", "n", "20"), resp.Integer(-9))
	assertReply(t, mustExec(t, p, "INCRBY", "n", "-1"), resp.Integer(-10))

	assertReply(t, mustExec(t, p, "DECR", "fresh"), resp.Integer(-1))
}

func TestIncr_ParsesStoredString(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "SET", "n", "41")
	assertReply(t, mustExec(t, p, "INCR", "n"), resp.Integer(42))

	mustExec(t, p, "SET", "s", "abc")
	assertReply(t, mustExec(t, p, "INCR", "s"),
		resp.SimpleError("ERR value is not an integer or out of range"))

	mustExec(t, p, "RPUSH", "l", "a")
	assertReply(t, mustExec(t, p, "INCR", "l"),
		resp.SimpleError("WRONGTYPE Operation against a key holding the wrong kind of value"))
}

func TestIncr_Overflow(t *testing.T) {
	p, _ := newTestProcessor(t)
	overflow := resp.SimpleError("ERR increment or decrement would overflow")

	mustExec(t, p, "SET", "n", "9223372036854775807")
	assertReply(t, mustExec(t, p, "INCR", "n"), overflow)
	assertReply(t, mustExec(t, p, "GET", "n"), resp.BulkStringText("9223372036854775807"))

	mustExec(t, p, "SET", "m", "-9223372036854775808")
	assertReply(t, mustExec(t, p, "DECR", "m"), overflow)
	assertReply(t, mustExec(t, p, "GET", "m"), resp.BulkStringText("-9223372036854775808"))

	assertReply(t, mustExec(t, p, "DECRBY", "zero", "-9223372036854775808"), overflow)

	assertReply(t, mustExec(t, p, "INCRBY", "n", "abc"),
		resp.SimpleError("ERR value is not an integer or out of range"))
}

func TestDelExists(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "SET", "a", "1")
	mustExec(t, p, "SET", "b", "2")

	assertReply(t, mustExec(t, p, "EXISTS", "a", "b", "a", "nope"), resp.Integer(3))
	assertReply(t, mustExec(t, p, "DEL", "a", "nope", "b"), resp.Integer(2))
	assertReply(t, mustExec(t, p, "EXISTS", "a", "b"), resp.Integer(0))
	assertReply(t, mustExec(t, p, "GET", "a"), resp.NullBulkString())
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
