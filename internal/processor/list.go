package processor

import (
	"bytes"
	"math"
	"strings"

	"github.com/yndnr/miniredis-go/internal/keyspace"
	"github.com/yndnr/miniredis-go/internal/resp"
)

// findList resolves a key that must hold a list. ok is false when the
// key is absent; a reply is returned for WRONGTYPE.
func findList(p *Processor, key []byte) (keyspace.Handle, bool, resp.Data) {
	h, ok := p.store.Find(string(key))
	if !ok {
		return keyspace.Handle{}, false, resp.Data{}
	}
	if h.Value().Kind != keyspace.KindList {
		return keyspace.Handle{}, false, errWrongType
	}
	return h, true, resp.Data{}
}

// eraseIfEmpty drops the key once its list has no elements; an empty
// list never remains in the store.
func eraseIfEmpty(p *Processor, h keyspace.Handle) {
	if len(h.Value().List) == 0 {
		p.store.Erase(h)
	}
}

// LLEN key
func execLLen(p *Processor, args [][]byte) resp.Data {
	if len(args) != 1 {
		return errWrongArgs("llen")
	}
	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		return resp.Integer(0)
	}
	return resp.Integer(int64(len(h.Value().List)))
}

// LINDEX key index
func execLIndex(p *Processor, args [][]byte) resp.Data {
	if len(args) != 2 {
		return errWrongArgs("lindex")
	}
	idx, okIdx := parseInt(args[1])
	if !okIdx {
		return errNotInteger
	}
	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		return resp.NullBulkString()
	}
	list := h.Value().List
	if idx < 0 {
		idx += int64(len(list))
	}
	if idx < 0 || idx >= int64(len(list)) {
		return resp.NullBulkString()
	}
	return resp.BulkString(list[idx])
}

// LRANGE key start stop
func execLRange(p *Processor, args [][]byte) resp.Data {
	if len(args) != 3 {
		return errWrongArgs("lrange")
	}
	start, ok1 := parseInt(args[1])
	stop, ok2 := parseInt(args[2])
	if !ok1 || !ok2 {
		return errNotInteger
	}
	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		return resp.Array()
	}

	list := h.Value().List
	length := int64(len(list))
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || length == 0 {
		return resp.Array()
	}

	elems := make([]resp.Data, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		elems = append(elems, resp.BulkString(list[i]))
	}
	return resp.Array(elems...)
}

// LSET key index element
func execLSet(p *Processor, args [][]byte) resp.Data {
	if len(args) != 3 {
		return errWrongArgs("lset")
	}
	idx, okIdx := parseInt(args[1])
	if !okIdx {
		return errNotInteger
	}
	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		return errNoSuchKey
	}
	list := h.Value().List
	if idx < 0 {
		idx += int64(len(list))
	}
	if idx < 0 || idx >= int64(len(list)) {
		return errIndexRange
	}
	list[idx] = args[2]
	return resp.SimpleString("OK")
}

// LREM key count element
//
// A positive count removes matches scanning head to tail, a negative
// count tail to head, zero removes all matches.
func execLRem(p *Processor, args [][]byte) resp.Data {
	if len(args) != 3 {
		return errWrongArgs("lrem")
	}
	count, okCount := parseInt(args[1])
	if !okCount {
		return errNotInteger
	}
	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		return resp.Integer(0)
	}

	limit := count
	reverse := false
	switch {
	case count == 0:
		limit = math.MaxInt64
	case count < 0:
		reverse = true
		if count == math.MinInt64 {
			limit = math.MaxInt64
		} else {
			limit = -count
		}
	}

	list := h.Value().List
	target := args[2]
	removed := int64(0)
	keep := make([][]byte, 0, len(list))
	if !reverse {
		for _, elem := range list {
			if removed < limit && bytes.Equal(elem, target) {
				removed++
				continue
			}
			keep = append(keep, elem)
		}
	} else {
		for i := len(list) - 1; i >= 0; i-- {
			if removed < limit && bytes.Equal(list[i], target) {
				removed++
				continue
			}
			keep = append(keep, list[i])
		}
		for i, j := 0, len(keep)-1; i < j; i, j = i+1, j-1 {
			keep[i], keep[j] = keep[j], keep[i]
		}
	}

	h.Value().List = keep
	eraseIfEmpty(p, h)
	return resp.Integer(removed)
}

// LINSERT key BEFORE|AFTER pivot element
func execLInsert(p *Processor, args [][]byte) resp.Data {
	if len(args) != 4 {
		return errWrongArgs("linsert")
	}
	var before bool
	switch strings.ToUpper(string(args[1])) {
	case "BEFORE":
		before = true
	case "AFTER":
	default:
		return errSyntax
	}
	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		return resp.Integer(0)
	}

	list := h.Value().List
	pivot := args[2]
	for i, elem := range list {
		if !bytes.Equal(elem, pivot) {
			continue
		}
		at := i
		if !before {
			at = i + 1
		}
		list = append(list, nil)
		copy(list[at+1:], list[at:])
		list[at] = args[3]
		h.Value().List = list
		return resp.Integer(int64(len(list)))
	}
	return resp.Integer(-1)
}

func execLPush(p *Processor, args [][]byte) resp.Data {
	return genericPush(p, "lpush", args, true)
}

func execRPush(p *Processor, args [][]byte) resp.Data {
	return genericPush(p, "rpush", args, false)
}

// genericPush appends the elements in argument order, at the head for
// LPUSH and the tail for RPUSH. LPUSH therefore reverses arrival order
// relative to final position.
func genericPush(p *Processor, cmd string, args [][]byte, front bool) resp.Data {
	if len(args) < 2 {
		return errWrongArgs(cmd)
	}
	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		h = p.store.Insert(string(args[0]), keyspace.NewList())
	}

	value := h.Value()
	for _, elem := range args[1:] {
		if front {
			value.List = append([][]byte{elem}, value.List...)
		} else {
			value.List = append(value.List, elem)
		}
	}
	return resp.Integer(int64(len(value.List)))
}

func execLPop(p *Processor, args [][]byte) resp.Data {
	return genericPop(p, "lpop", args, true)
}

func execRPop(p *Processor, args [][]byte) resp.Data {
	return genericPop(p, "rpop", args, false)
}

// genericPop removes from the head for LPOP and the tail for RPOP.
// Without a count the reply is one bulk string or nil; with a count it
// is an array of up to count elements in pop order, or a null array for
// a missing key.
func genericPop(p *Processor, cmd string, args [][]byte, front bool) resp.Data {
	if len(args) < 1 || len(args) > 2 {
		return errWrongArgs(cmd)
	}

	hasCount := len(args) == 2
	count := int64(1)
	if hasCount {
		n, ok := parseInt(args[1])
		if !ok {
			return errNotInteger
		}
		if n <= 0 {
			return errNotPositive
		}
		count = n
	}

	h, ok, wrong := findList(p, args[0])
	if wrong.Kind == resp.KindSimpleError {
		return wrong
	}
	if !ok {
		if hasCount {
			return resp.NullArray()
		}
		return resp.NullBulkString()
	}

	value := h.Value()
	if count > int64(len(value.List)) {
		count = int64(len(value.List))
	}

	popped := make([]resp.Data, 0, count)
	for i := int64(0); i < count; i++ {
		var elem []byte
		if front {
			elem = value.List[0]
			value.List = value.List[1:]
		} else {
			elem = value.List[len(value.List)-1]
			value.List = value.List[:len(value.List)-1]
		}
		popped = append(popped, resp.BulkString(elem))
	}
	eraseIfEmpty(p, h)

	if hasCount {
		return resp.Array(popped...)
	}
	return popped[0]
}
