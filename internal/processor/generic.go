package processor

import (
	"strings"
	"time"

	"github.com/yndnr/miniredis-go/internal/resp"
)

// DEL key [key ...]
func execDel(p *Processor, args [][]byte) resp.Data {
	if len(args) < 1 {
		return errWrongArgs("del")
	}
	removed := int64(0)
	for _, key := range args {
		if h, ok := p.store.Find(string(key)); ok {
			p.store.Erase(h)
			removed++
		}
	}
	return resp.Integer(removed)
}

// EXISTS key [key ...]
//
// Counts per argument: a key named twice counts twice.
func execExists(p *Processor, args [][]byte) resp.Data {
	if len(args) < 1 {
		return errWrongArgs("exists")
	}
	found := int64(0)
	for _, key := range args {
		if _, ok := p.store.Find(string(key)); ok {
			found++
		}
	}
	return resp.Integer(found)
}

func execExpire(p *Processor, args [][]byte) resp.Data {
	return genericExpire(p, "expire", args, time.Second, false)
}

func execPExpire(p *Processor, args [][]byte) resp.Data {
	return genericExpire(p, "pexpire", args, time.Millisecond, false)
}

func execExpireAt(p *Processor, args [][]byte) resp.Data {
	return genericExpire(p, "expireat", args, time.Second, true)
}

func execPExpireAt(p *Processor, args [][]byte) resp.Data {
	return genericExpire(p, "pexpireat", args, time.Millisecond, true)
}

// genericExpire implements the EXPIRE family. The unit selects seconds
// or milliseconds and absolute selects epoch instants over relative
// offsets. The optional condition modifier follows current Redis
// semantics; a key without TTL compares as infinitely far away, so GT
// rejects and LT accepts.
func genericExpire(p *Processor, cmd string, args [][]byte, unit time.Duration, absolute bool) resp.Data {
	if len(args) < 2 || len(args) > 3 {
		return errWrongArgs(cmd)
	}
	n, ok := parseInt(args[1])
	if !ok {
		return errNotInteger
	}

	cond := ""
	if len(args) == 3 {
		cond = strings.ToUpper(string(args[2]))
		switch cond {
		case "NX", "XX", "GT", "LT":
		default:
			return errSyntax
		}
	}

	h, ok := p.store.Find(string(args[0]))
	if !ok {
		return resp.Integer(0)
	}

	now := p.now()
	var expires time.Time
	switch {
	case absolute && unit == time.Second:
		expires = time.Unix(n, 0)
	case absolute:
		expires = time.UnixMilli(n)
	default:
		expires = now.Add(time.Duration(n) * unit)
	}

	remaining, hasTTL := p.store.TTL(h)
	proposed := expires.Sub(now)
	switch cond {
	case "NX":
		if hasTTL {
			return resp.Integer(0)
		}
	case "XX":
		if !hasTTL {
			return resp.Integer(0)
		}
	case "GT":
		if !hasTTL || proposed <= remaining {
			return resp.Integer(0)
		}
	case "LT":
		if hasTTL && proposed >= remaining {
			return resp.Integer(0)
		}
	}

	if !now.Before(expires) {
		p.store.Erase(h)
		return resp.Integer(1)
	}
	p.store.ExpireAt(h, expires)
	return resp.Integer(1)
}

func execTTL(p *Processor, args [][]byte) resp.Data {
	return genericTTL(p, "ttl", args, time.Second)
}

func execPTTL(p *Processor, args [][]byte) resp.Data {
	return genericTTL(p, "pttl", args, time.Millisecond)
}

// genericTTL reports the remaining time to live truncated toward zero:
// -2 for a missing key, -1 for a key without TTL. A non-positive
// remainder deletes the key on the spot.
func genericTTL(p *Processor, cmd string, args [][]byte, unit time.Duration) resp.Data {
	if len(args) != 1 {
		return errWrongArgs(cmd)
	}
	h, ok := p.store.Find(string(args[0]))
	if !ok {
		return resp.Integer(-2)
	}
	remaining, ok := p.store.TTL(h)
	if !ok {
		return resp.Integer(-1)
	}
	num := int64(remaining / unit)
	if remaining <= 0 {
		p.store.Erase(h)
		return resp.Integer(-2)
	}
	return resp.Integer(num)
}
