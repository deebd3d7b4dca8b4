package processor

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/miniredis-go/internal/keyspace"
	"github.com/yndnr/miniredis-go/internal/resp"
	"github.com/yndnr/miniredis-go/internal/snapshot"
	"github.com/yndnr/miniredis-go/internal/telemetry/metric"
)

// Generic error replies. The wire strings are fixed; clients match on
// them.
var (
	errSyntax      = resp.SimpleError("ERR syntax error")
	errNotInteger  = resp.SimpleError("ERR value is not an integer or out of range")
	errOverflow    = resp.SimpleError("ERR increment or decrement would overflow")
	errWrongType   = resp.SimpleError("WRONGTYPE Operation against a key holding the wrong kind of value")
	errNoSuchKey   = resp.SimpleError("ERR no such key")
	errIndexRange  = resp.SimpleError("ERR index out of range")
	errNotPositive = resp.SimpleError("ERR value is out of range, must be positive")
	errBadCommand  = resp.SimpleError("ERR Protocol error: expected array of bulk strings")
)

func errWrongArgs(cmd string) resp.Data {
	return resp.SimpleError("ERR wrong number of arguments for '" + cmd + "' command")
}

type handler func(p *Processor, args [][]byte) resp.Data

// commands maps the normalized command name to its handler and the name
// used in wrong-arity replies.
var commands = map[string]struct {
	fn   handler
	name string
}{
	"PING": {execPing, "ping"},
	"SAVE": {execSave, "save"},
	"LOAD": {execLoad, "load"},

	"SET":    {execSet, "set"},
	"GET":    {execGet, "get"},
	"INCR":   {execIncr, "incr"},
	"INCRBY": {execIncrBy, "incrby"},
	"DECR":   {execDecr, "decr"},
	"DECRBY": {execDecrBy, "decrby"},

	"DEL":       {execDel, "del"},
	"EXISTS":    {execExists, "exists"},
	"EXPIRE":    {execExpire, "expire"},
	"PEXPIRE":   {execPExpire, "pexpire"},
	"EXPIREAT":  {execExpireAt, "expireat"},
	"PEXPIREAT": {execPExpireAt, "pexpireat"},
	"TTL":       {execTTL, "ttl"},
	"PTTL":      {execPTTL, "pttl"},

	"LLEN":    {execLLen, "llen"},
	"LINDEX":  {execLIndex, "lindex"},
	"LRANGE":  {execLRange, "lrange"},
	"LSET":    {execLSet, "lset"},
	"LREM":    {execLRem, "lrem"},
	"LINSERT": {execLInsert, "linsert"},
	"LPUSH":   {execLPush, "lpush"},
	"RPUSH":   {execRPush, "rpush"},
	"LPOP":    {execLPop, "lpop"},
	"RPOP":    {execRPop, "rpop"},
}

// Processor executes commands against the keyspace. It keeps no state
// across commands and must only run on the strand that owns the store.
type Processor struct {
	store        *keyspace.Store
	snapshotPath string
	metrics      *metric.Registry
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithSnapshotPath sets the file used when SAVE/LOAD name no path.
func WithSnapshotPath(path string) Option {
	return func(p *Processor) {
		p.snapshotPath = path
	}
}

// WithMetrics attaches a metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// New creates a processor over the given store.
func New(store *keyspace.Store, opts ...Option) *Processor {
	p := &Processor{
		store:        store,
		snapshotPath: snapshot.DefaultPath,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs a single command and returns its reply. The command must
// be a non-null, non-empty RESP array of non-null bulk strings.
func (p *Processor) Execute(cmd resp.Data) resp.Data {
	if cmd.Kind != resp.KindArray || cmd.Null || len(cmd.Elems) == 0 {
		return errBadCommand
	}
	args := make([][]byte, 0, len(cmd.Elems))
	for _, elem := range cmd.Elems {
		if elem.Kind != resp.KindBulkString || elem.Null {
			return errBadCommand
		}
		args = append(args, elem.Bulk)
	}

	entry, ok := commands[normalizeName(args[0])]
	if !ok {
		return resp.SimpleError("ERR unknown command '" + string(args[0]) + "'")
	}
	p.metrics.Command(entry.name)
	reply := entry.fn(p, args[1:])
	p.metrics.SetKeys(p.store.Len())
	return reply
}

// normalizeName uppercases an ASCII command name without allocating for
// already uppercased tokens.
func normalizeName(b []byte) string {
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}

func parseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func checkedAdd(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func checkedSub(a, b int64) (int64, bool) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, false
	}
	return diff, true
}
