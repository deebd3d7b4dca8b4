package snapshot

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yndnr/miniredis-go/internal/keyspace"
	"github.com/yndnr/miniredis-go/internal/resp"
)

// DefaultPath is the snapshot file used when SAVE/LOAD name none.
const DefaultPath = "dump.mrdb"

// File header: magic followed by a one-byte format version.
var magic = []byte{'M', 'R', 'D', 'B'}

const formatVersion = 1

// ErrBadSnapshot marks any structural fault in a snapshot file.
var ErrBadSnapshot = errors.New("snapshot: bad file")

const entryFields = 5

// Save writes the snapshot to path, replacing any previous file
// atomically: the new contents go to <path>.tmp, the old file is parked
// at <path>.bak until the rename over path succeeds.
func Save(path string, snap *keyspace.Snapshot) error {
	body := encodeBody(snap)

	tmpPath := path + ".tmp"
	bakPath := path + ".bak"
	_ = os.Remove(tmpPath)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", tmpPath, err)
	}
	header := append(append([]byte(nil), magic...), formatVersion)
	if _, err := f.Write(header); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write body: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close: %w", err)
	}

	hadPrevious := false
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, bakPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("snapshot: back up %s: %w", path, err)
		}
		hadPrevious = true
	}
	if err := os.Rename(tmpPath, path); err != nil {
		if hadPrevious {
			_ = os.Rename(bakPath, path)
		}
		_ = os.Remove(tmpPath)
		return fmt.Errorf("snapshot: replace %s: %w", path, err)
	}
	if hadPrevious {
		_ = os.Remove(bakPath)
	}
	return nil
}

// Load reads and decodes the snapshot at path. Entries whose deadline
// already passed are dropped. Any structural fault aborts the load; the
// caller's keyspace is untouched until it installs the returned value.
func Load(path string) (*keyspace.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	if len(raw) < len(magic)+1 {
		return nil, fmt.Errorf("%w: truncated header", ErrBadSnapshot)
	}
	for i, b := range magic {
		if raw[i] != b {
			return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
		}
	}
	if raw[len(magic)] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, raw[len(magic)])
	}

	parser := resp.NewParser(resp.Unlimited())
	parser.Append(raw[len(magic)+1:])
	if parser.Parse() != 1 || parser.HasError() {
		return nil, fmt.Errorf("%w: malformed body", ErrBadSnapshot)
	}
	body := parser.PopData()
	if parser.HasData() {
		return nil, fmt.Errorf("%w: trailing data after body", ErrBadSnapshot)
	}
	if body.Kind != resp.KindArray || body.Null {
		return nil, fmt.Errorf("%w: body is not an array", ErrBadSnapshot)
	}

	now := time.Now()
	snap := &keyspace.Snapshot{Entries: make([]keyspace.Entry, 0, len(body.Elems))}
	for i, elem := range body.Elems {
		entry, expired, err := decodeEntry(elem, now)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrBadSnapshot, i, err)
		}
		if expired {
			continue
		}
		snap.Entries = append(snap.Entries, entry)
	}
	return snap, nil
}

// encodeBody renders the snapshot as a single RESP array, one 5-element
// array per entry: key, type tag, payload, has-expire flag, deadline in
// epoch milliseconds.
func encodeBody(snap *keyspace.Snapshot) []byte {
	entries := make([]resp.Data, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		var expireAt int64
		hasExpire := int64(0)
		if entry.HasExpire {
			hasExpire = 1
			expireAt = entry.ExpireAt.UnixMilli()
		}
		entries = append(entries, resp.Array(
			resp.BulkStringText(entry.Key),
			resp.Integer(int64(entry.Value.Kind)),
			encodePayload(entry.Value),
			resp.Integer(hasExpire),
			resp.Integer(expireAt),
		))
	}
	return resp.Array(entries...).Encode()
}

func encodePayload(value *keyspace.Value) resp.Data {
	switch value.Kind {
	case keyspace.KindString:
		return resp.BulkString(value.Str)
	case keyspace.KindInteger:
		return resp.Integer(value.Int)
	case keyspace.KindList:
		elems := make([]resp.Data, 0, len(value.List))
		for _, item := range value.List {
			elems = append(elems, resp.BulkString(item))
		}
		return resp.Array(elems...)
	case keyspace.KindSet:
		elems := make([]resp.Data, 0, len(value.Set))
		for member := range value.Set {
			elems = append(elems, resp.BulkStringText(member))
		}
		return resp.Array(elems...)
	case keyspace.KindHash:
		elems := make([]resp.Data, 0, len(value.Hash)*2)
		for field, val := range value.Hash {
			elems = append(elems, resp.BulkStringText(field), resp.BulkString(val))
		}
		return resp.Array(elems...)
	}
	panic(fmt.Sprintf("snapshot: bad value kind %d", value.Kind))
}

func decodeEntry(elem resp.Data, now time.Time) (keyspace.Entry, bool, error) {
	var entry keyspace.Entry

	if elem.Kind != resp.KindArray || elem.Null || len(elem.Elems) != entryFields {
		return entry, false, errors.New("not a 5-element array")
	}
	key := elem.Elems[0]
	if key.Kind != resp.KindBulkString || key.Null {
		return entry, false, errors.New("key is not a bulk string")
	}
	tag := elem.Elems[1]
	if tag.Kind != resp.KindInteger {
		return entry, false, errors.New("type tag is not an integer")
	}
	value, err := decodePayload(tag.Num, elem.Elems[2])
	if err != nil {
		return entry, false, err
	}
	hasExpire := elem.Elems[3]
	if hasExpire.Kind != resp.KindInteger || (hasExpire.Num != 0 && hasExpire.Num != 1) {
		return entry, false, errors.New("bad has-expire flag")
	}
	expireAt := elem.Elems[4]
	if expireAt.Kind != resp.KindInteger {
		return entry, false, errors.New("expire-at is not an integer")
	}
	if hasExpire.Num == 0 && expireAt.Num != 0 {
		return entry, false, errors.New("expire-at set without has-expire")
	}

	entry.Key = string(key.Bulk)
	entry.Value = value
	if hasExpire.Num == 1 {
		deadline := time.UnixMilli(expireAt.Num)
		if !now.Before(deadline) {
			return entry, true, nil
		}
		entry.HasExpire = true
		entry.ExpireAt = deadline
	}
	return entry, false, nil
}

func decodePayload(tag int64, payload resp.Data) (*keyspace.Value, error) {
	if tag < int64(keyspace.KindString) || tag > int64(keyspace.KindHash) {
		return nil, fmt.Errorf("unknown type tag %d", tag)
	}
	switch keyspace.Kind(tag) {
	case keyspace.KindString:
		if payload.Kind != resp.KindBulkString || payload.Null {
			return nil, errors.New("string payload is not a bulk string")
		}
		return keyspace.NewString(payload.Bulk), nil

	case keyspace.KindInteger:
		if payload.Kind != resp.KindInteger {
			return nil, errors.New("integer payload is not an integer")
		}
		return keyspace.NewInteger(payload.Num), nil

	case keyspace.KindList:
		items, err := bulkElems(payload)
		if err != nil {
			return nil, fmt.Errorf("list payload: %w", err)
		}
		return keyspace.NewList(items...), nil

	case keyspace.KindSet:
		items, err := bulkElems(payload)
		if err != nil {
			return nil, fmt.Errorf("set payload: %w", err)
		}
		value := keyspace.NewSet()
		for _, item := range items {
			value.Set[string(item)] = struct{}{}
		}
		return value, nil

	case keyspace.KindHash:
		items, err := bulkElems(payload)
		if err != nil {
			return nil, fmt.Errorf("hash payload: %w", err)
		}
		if len(items)%2 != 0 {
			return nil, errors.New("hash payload has odd element count")
		}
		value := keyspace.NewHash()
		for i := 0; i < len(items); i += 2 {
			value.Hash[string(items[i])] = items[i+1]
		}
		return value, nil
	}
	return nil, fmt.Errorf("unknown type tag %d", tag)
}

func bulkElems(payload resp.Data) ([][]byte, error) {
	if payload.Kind != resp.KindArray || payload.Null {
		return nil, errors.New("not an array")
	}
	items := make([][]byte, 0, len(payload.Elems))
	for _, elem := range payload.Elems {
		if elem.Kind != resp.KindBulkString || elem.Null {
			return nil, errors.New("element is not a bulk string")
		}
		items = append(items, elem.Bulk)
	}
	return items, nil
}
