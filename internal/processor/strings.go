package processor

import (
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/miniredis-go/internal/keyspace"
	"github.com/yndnr/miniredis-go/internal/resp"
)

// SET key value [NX | XX] [GET] [EX seconds | PX milliseconds |
//   EXAT unix-time-seconds | PXAT unix-time-milliseconds | KEEPTTL]
//
// Without GET the reply is OK, or nil when NX/XX aborted the write.
// With GET the reply is the previous value (nil when absent), whether
// or not the write happened.
func execSet(p *Processor, args [][]byte) resp.Data {
	if len(args) < 2 {
		return errWrongArgs("set")
	}
	key, value := string(args[0]), args[1]

	var nx, xx, get, keepTTL bool
	var timeOpt string
	var timeArg int64
	for i := 2; i < len(args); i++ {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NX", "XX":
			if nx || xx {
				return errSyntax
			}
			nx = opt == "NX"
			xx = opt == "XX"
		case "GET":
			if get {
				return errSyntax
			}
			get = true
		case "KEEPTTL":
			if keepTTL || timeOpt != "" {
				return errSyntax
			}
			keepTTL = true
		case "EX", "PX", "EXAT", "PXAT":
			if keepTTL || timeOpt != "" {
				return errSyntax
			}
			i++
			if i >= len(args) {
				return errSyntax
			}
			n, ok := parseInt(args[i])
			if !ok {
				return errNotInteger
			}
			if n <= 0 {
				return errNotPositive
			}
			timeOpt, timeArg = opt, n
		default:
			return errSyntax
		}
	}

	h, exists := p.store.Find(key)
	old := resp.NullBulkString()
	if get && exists {
		switch h.Value().Kind {
		case keyspace.KindString:
			old = resp.BulkString(h.Value().Str)
		case keyspace.KindInteger:
			old = resp.BulkStringText(strconv.FormatInt(h.Value().Int, 10))
		default:
			return errWrongType
		}
	}

	if (nx && exists) || (xx && !exists) {
		if get {
			return old
		}
		return resp.NullBulkString()
	}

	h = p.store.Insert(key, keyspace.NewString(value))
	switch timeOpt {
	case "EX":
		p.store.ExpireAfter(h, time.Duration(timeArg)*time.Second)
	case "PX":
		p.store.ExpireAfter(h, time.Duration(timeArg)*time.Millisecond)
	case "EXAT":
		p.store.ExpireAt(h, time.Unix(timeArg, 0))
	case "PXAT":
		p.store.ExpireAt(h, time.UnixMilli(timeArg))
	default:
		if !keepTTL {
			p.store.ClearExpires(h)
		}
	}

	if get {
		return old
	}
	return resp.SimpleString("OK")
}

// GET key
func execGet(p *Processor, args [][]byte) resp.Data {
	if len(args) != 1 {
		return errWrongArgs("get")
	}
	h, ok := p.store.Find(string(args[0]))
	if !ok {
		return resp.NullBulkString()
	}
	switch h.Value().Kind {
	case keyspace.KindString:
		return resp.BulkString(h.Value().Str)
	case keyspace.KindInteger:
		return resp.BulkStringText(strconv.FormatInt(h.Value().Int, 10))
	}
	return errWrongType
}

func execIncr(p *Processor, args [][]byte) resp.Data {
	return genericCalc(p, "incr", args, false, false)
}

func execIncrBy(p *Processor, args [][]byte) resp.Data {
	return genericCalc(p, "incrby", args, false, true)
}

func execDecr(p *Processor, args [][]byte) resp.Data {
	return genericCalc(p, "decr", args, true, false)
}

func execDecrBy(p *Processor, args [][]byte) resp.Data {
	return genericCalc(p, "decrby", args, true, true)
}

// genericCalc applies checked 64-bit addition or subtraction to the
// key's value. A missing key starts from 0; a string value is parsed
// and rewritten as a native integer in place. Overflow leaves the value
// untouched.
func genericCalc(p *Processor, cmd string, args [][]byte, sub, withArg bool) resp.Data {
	wantArgs := 1
	if withArg {
		wantArgs = 2
	}
	if len(args) != wantArgs {
		return errWrongArgs(cmd)
	}

	rhs := int64(1)
	if withArg {
		n, ok := parseInt(args[1])
		if !ok {
			return errNotInteger
		}
		rhs = n
	}
	apply := func(cur int64) (int64, bool) {
		if sub {
			return checkedSub(cur, rhs)
		}
		return checkedAdd(cur, rhs)
	}

	key := string(args[0])
	h, ok := p.store.Find(key)
	if !ok {
		num, ok := apply(0)
		if !ok {
			return errOverflow
		}
		p.store.Insert(key, keyspace.NewInteger(num))
		return resp.Integer(num)
	}

	value := h.Value()
	switch value.Kind {
	case keyspace.KindInteger:
		num, ok := apply(value.Int)
		if !ok {
			return errOverflow
		}
		value.Int = num
		return resp.Integer(num)

	case keyspace.KindString:
		cur, ok := parseInt(value.Str)
		if !ok {
			return errNotInteger
		}
		num, ok := apply(cur)
		if !ok {
			return errOverflow
		}
		value.Kind = keyspace.KindInteger
		value.Int = num
		value.Str = nil
		return resp.Integer(num)
	}
	return errWrongType
}
