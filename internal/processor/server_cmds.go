package processor

import (
	"strings"

	"github.com/yndnr/miniredis-go/internal/resp"
	"github.com/yndnr/miniredis-go/internal/snapshot"
)

// PING [message]
func execPing(p *Processor, args [][]byte) resp.Data {
	switch len(args) {
	case 0:
		return resp.SimpleString("PONG")
	case 1:
		return resp.BulkString(args[0])
	}
	return errWrongArgs("ping")
}

// SAVE [TO path]
func execSave(p *Processor, args [][]byte) resp.Data {
	path, errReply := persistencePath(p, "save", "TO", args)
	if errReply.Kind == resp.KindSimpleError {
		return errReply
	}

	snap := p.store.CreateSnapshot()
	if err := snapshot.Save(path, snap); err != nil {
		p.logger.Error("snapshot save failed", "path", path, "error", err)
		return resp.SimpleError("ERR " + err.Error())
	}
	p.metrics.SnapshotSaved()
	p.logger.Info("snapshot saved", "path", path, "entries", len(snap.Entries))
	return resp.SimpleString("OK")
}

// LOAD [FROM path]
func execLoad(p *Processor, args [][]byte) resp.Data {
	path, errReply := persistencePath(p, "load", "FROM", args)
	if errReply.Kind == resp.KindSimpleError {
		return errReply
	}

	snap, err := snapshot.Load(path)
	if err != nil {
		p.logger.Error("snapshot load failed", "path", path, "error", err)
		return resp.SimpleError("ERR " + err.Error())
	}
	p.store.ReplaceWithSnapshot(snap)
	p.metrics.SnapshotLoaded()
	p.logger.Info("snapshot loaded", "path", path, "entries", len(snap.Entries))
	return resp.SimpleString("OK")
}

// persistencePath resolves the optional [keyword path] suffix of SAVE
// and LOAD, falling back to the configured default path.
func persistencePath(p *Processor, cmd, keyword string, args [][]byte) (string, resp.Data) {
	switch len(args) {
	case 0:
		return p.snapshotPath, resp.Data{}
	case 2:
		if !strings.EqualFold(string(args[0]), keyword) {
			return "", errSyntax
		}
		return string(args[1]), resp.Data{}
	}
	return "", errWrongArgs(cmd)
}
