package processor

import (
	"testing"

	"github.com/yndnr/miniredis-go/internal/resp"
)

func bulkArray(items ...string) resp.Data {
	elems := make([]resp.Data, 0, len(items))
	for _, item := range items {
		elems = append(elems, resp.BulkStringText(item))
	}
	return resp.Array(elems...)
}

func TestPushAndRange(t *testing.T) {
	p, _ := newTestProcessor(t)

	assertReply(t, mustExec(t, p, "RPUSH", "l", "a", "b", "c"), resp.Integer(3))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "0", "-1"), bulkArray("a", "b", "c"))

	// LPUSH reverses arrival order relative to final position.
	assertReply(t, mustExec(t, p, "LPUSH", "f", "a", "b", "c"), resp.Integer(3))
	assertReply(t, mustExec(t, p, "LRANGE", "f", "0", "-1"), bulkArray("c", "b", "a"))
}

func TestLLen(t *testing.T) {
	p, _ := newTestProcessor(t)

	assertReply(t, mustExec(t, p, "LLEN", "missing"), resp.Integer(0))
	mustExec(t, p, "RPUSH", "l", "a", "b")
	assertReply(t, mustExec(t, p, "LLEN", "l"), resp.Integer(2))

	mustExec(t, p, "SET", "s", "v")
	assertReply(t, mustExec(t, p, "LLEN", "s"),
		resp.SimpleError("WRONGTYPE Operation against a key holding the wrong kind of value"))
}

func TestLIndex(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "RPUSH", "l", "a", "b", "c")

	assertReply(t, mustExec(t, p, "LINDEX", "l", "0"), resp.BulkStringText("a"))
	assertReply(t, mustExec(t, p, "LINDEX", "l", "2"), resp.BulkStringText("c"))
	assertReply(t, mustExec(t, p, "LINDEX", "l", "-1"), resp.BulkStringText("c"))
	assertReply(t, mustExec(t, p, "LINDEX", "l", "-3"), resp.BulkStringText("a"))
	assertReply(t, mustExec(t, p, "LINDEX", "l", "3"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "LINDEX", "l", "-4"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "LINDEX", "missing", "0"), resp.NullBulkString())
	assertReply(t, mustExec(t, p, "LINDEX", "l", "x"),
		resp.SimpleError("ERR value is not an integer or out of range"))
}

func TestLRange_Clamping(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "RPUSH", "l", "a", "b", "c", "d")

	assertReply(t, mustExec(t, p, "LRANGE", "l", "1", "2"), bulkArray("b", "c"))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "-2", "-1"), bulkArray("c", "d"))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "-100", "100"), bulkArray("a", "b", "c", "d"))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "2", "1"), resp.Array())
	assertReply(t, mustExec(t, p, "LRANGE", "l", "5", "10"), resp.Array())
	assertReply(t, mustExec(t, p, "LRANGE", "missing", "0", "-1"), resp.Array())
}

func TestLSet(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "RPUSH", "l", "a", "b", "c")

	assertReply(t, mustExec(t, p, "LSET", "l", "1", "B"), resp.SimpleString("OK"))
	assertReply(t, mustExec(t, p, "LSET", "l", "-1", "C"), resp.SimpleString("OK"))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "0", "-1"), bulkArray("a", "B", "C"))

	assertReply(t, mustExec(t, p, "LSET", "l", "3", "x"),
		resp.SimpleError("ERR index out of range"))
	assertReply(t, mustExec(t, p, "LSET", "missing", "0", "x"),
		resp.SimpleError("ERR no such key"))
}

func TestLRem(t *testing.T) {
	p, _ := newTestProcessor(t)

	mustExec(t, p, "RPUSH", "l", "x", "a", "x", "b", "x", "c")
	assertReply(t, mustExec(t, p, "LREM", "l", "2", "x"), resp.Integer(2))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "0", "-1"), bulkArray("a", "b", "x", "c"))

	mustExec(t, p, "DEL", "l")
	mustExec(t, p, "RPUSH", "l", "x", "a", "x", "b", "x")
	assertReply(t, mustExec(t, p, "LREM", "l", "-2", "x"), resp.Integer(2))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "0", "-1"), bulkArray("x", "a", "b"))

	assertReply(t, mustExec(t, p, "LREM", "l", "0", "x"), resp.Integer(1))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "0", "-1"), bulkArray("a", "b"))

	assertReply(t, mustExec(t, p, "LREM", "missing", "0", "x"), resp.Integer(0))

	// Removing the last element deletes the key.
	mustExec(t, p, "DEL", "l")
	mustExec(t, p, "RPUSH", "l", "only")
	assertReply(t, mustExec(t, p, "LREM", "l", "0", "only"), resp.Integer(1))
	assertReply(t, mustExec(t, p, "EXISTS", "l"), resp.Integer(0))

	// INT64_MIN count saturates instead of negating.
	mustExec(t, p, "RPUSH", "m", "x", "x", "x")
	assertReply(t, mustExec(t, p, "LREM", "m", "-9223372036854775808", "x"), resp.Integer(3))
	assertReply(t, mustExec(t, p, "EXISTS", "m"), resp.Integer(0))
}

func TestLInsert(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "RPUSH", "l", "a", "c")

	assertReply(t, mustExec(t, p, "LINSERT", "l", "BEFORE", "c", "b"), resp.Integer(3))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "0", "-1"), bulkArray("a", "b", "c"))

	assertReply(t, mustExec(t, p, "LINSERT", "l", "after", "c", "d"), resp.Integer(4))
	assertReply(t, mustExec(t, p, "LRANGE", "l", "0", "-1"), bulkArray("a", "b", "c", "d"))

	assertReply(t, mustExec(t, p, "LINSERT", "l", "BEFORE", "zz", "x"), resp.Integer(-1))
	assertReply(t, mustExec(t, p, "LINSERT", "missing", "BEFORE", "a", "x"), resp.Integer(0))
	assertReply(t, mustExec(t, p, "LINSERT", "l", "SIDEWAYS", "a", "x"),
		resp.SimpleError("ERR syntax error"))
}

func TestLPop(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "RPUSH", "l", "a", "b", "c")

	assertReply(t, mustExec(t, p, "LPOP", "l"), resp.BulkStringText("a"))
	assertReply(t, mustExec(t, p, "RPOP", "l"), resp.BulkStringText("c"))
	assertReply(t, mustExec(t, p, "LPOP", "l"), resp.BulkStringText("b"))

	// Popping the last element removed the key.
	assertReply(t, mustExec(t, p, "EXISTS", "l"), resp.Integer(0))
	assertReply(t, mustExec(t, p, "LPOP", "l"), resp.NullBulkString())
}

func TestLPop_Count(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "RPUSH", "l", "a", "b", "c")

	assertReply(t, mustExec(t, p, "LPOP", "l", "2"), bulkArray("a", "b"))
	assertReply(t, mustExec(t, p, "LLEN", "l"), resp.Integer(1))

	// Count larger than the list pops everything and deletes the key.
	assertReply(t, mustExec(t, p, "LPOP", "l", "10"), bulkArray("c"))
	assertReply(t, mustExec(t, p, "EXISTS", "l"), resp.Integer(0))

	// A missing key with count yields a null array.
	assertReply(t, mustExec(t, p, "LPOP", "l", "2"), resp.NullArray())

	mustExec(t, p, "RPUSH", "r", "a", "b", "c")
	assertReply(t, mustExec(t, p, "RPOP", "r", "2"), bulkArray("c", "b"))

	assertReply(t, mustExec(t, p, "LPOP", "r", "0"),
		resp.SimpleError("ERR value is out of range, must be positive"))
	assertReply(t, mustExec(t, p, "LPOP", "r", "-1"),
		resp.SimpleError("ERR value is out of range, must be positive"))
	assertReply(t, mustExec(t, p, "LPOP", "r", "x"),
		resp.SimpleError("ERR value is not an integer or out of range"))
}

func TestList_WrongType(t *testing.T) {
	p, _ := newTestProcessor(t)
	mustExec(t, p, "SET", "s", "v")
	wrongType := resp.SimpleError("WRONGTYPE Operation against a key holding the wrong kind of value")

	tests := [][]string{
		{"LLEN", "s"},
		{"LINDEX", "s", "0"},
		{"LRANGE", "s", "0", "-1"},
		{"LSET", "s", "0", "x"},
		{"LREM", "s", "0", "x"},
		{"LINSERT", "s", "BEFORE", "a", "x"},
		{"LPUSH", "s", "x"},
		{"RPUSH", "s", "x"},
		{"LPOP", "s"},
		{"RPOP", "s"},
	}
	for _, args := range tests {
		assertReply(t, mustExec(t, p, args...), wrongType)
	}
}
