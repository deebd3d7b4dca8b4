package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/miniredis-go/internal/resp"
)

// readBufferSize is the fixed receive chunk size per session.
const readBufferSize = 4096

var replyRateLimited = resp.SimpleError("ERR rate limit exceeded")

// session drives one connection through the receive/parse/execute/send
// loop. Commands parsed from one chunk all execute before any reply is
// written, and replies preserve request order. A protocol error turns
// into a final error reply followed by teardown.
type session struct {
	srv     *Server
	conn    net.Conn
	parser  *resp.Parser
	logger  *slog.Logger
	limiter *rate.Limiter

	// sendBufs is reused across batches to keep gathered writes
	// allocation-free in the steady state.
	sendBufs net.Buffers
}

func (sess *session) run() {
	buf := make([]byte, readBufferSize)
	idle := sess.srv.cfg.IdleTimeout

	for {
		if idle > 0 {
			if err := sess.conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
				return
			}
		}
		n, err := sess.conn.Read(buf)
		if err != nil {
			sess.logReadError(err)
			return
		}

		sess.parser.Append(buf[:n])
		sess.parser.Parse()

		var batch []resp.Data
		for sess.parser.HasData() {
			batch = append(batch, sess.parser.PopData())
		}
		protoErr := ""
		if sess.parser.HasError() {
			protoErr = sess.parser.TakeError()
			sess.srv.metrics.ProtocolError()
			sess.logger.Debug("protocol error", "error", protoErr)
		}
		if len(batch) == 0 && protoErr == "" {
			continue
		}

		replies, quit := sess.execute(batch)
		closeAfterSend := quit
		if protoErr != "" {
			replies = append(replies, resp.SimpleError("ERR Protocol error: "+protoErr))
			closeAfterSend = true
		}

		if err := sess.send(replies); err != nil {
			sess.logger.Debug("write error", "error", err)
			return
		}
		if closeAfterSend {
			return
		}
	}
}

// execute runs the batch on the processor strand and collects the
// replies. A QUIT in the batch cuts it short: commands before it
// execute, QUIT answers OK, anything after it is dropped and the
// session closes after the send.
func (sess *session) execute(batch []resp.Data) ([]resp.Data, bool) {
	quit := false
	for i, cmd := range batch {
		if isQuit(cmd) {
			batch = batch[:i]
			quit = true
			break
		}
	}

	replies := make([]resp.Data, 0, len(batch)+1)
	if len(batch) > 0 {
		done := make(chan struct{})
		sess.srv.strand.post(func() {
			defer close(done)
			for _, cmd := range batch {
				if sess.limiter != nil && !sess.limiter.Allow() {
					replies = append(replies, replyRateLimited)
					continue
				}
				replies = append(replies, sess.srv.proc.Execute(cmd))
			}
		})
		<-done
	}
	if quit {
		replies = append(replies, resp.SimpleString("OK"))
	}
	return replies, quit
}

// send encodes the replies and writes them as one gathered write.
func (sess *session) send(replies []resp.Data) error {
	sess.sendBufs = sess.sendBufs[:0]
	for _, reply := range replies {
		sess.sendBufs = append(sess.sendBufs, reply.Encode())
	}

	if idle := sess.srv.cfg.IdleTimeout; idle > 0 {
		if err := sess.conn.SetWriteDeadline(time.Now().Add(idle)); err != nil {
			return err
		}
	}
	_, err := sess.sendBufs.WriteTo(sess.conn)
	return err
}

func (sess *session) logReadError(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		sess.logger.Debug("connection idle timeout")
		return
	}
	sess.logger.Debug("read error", "error", err)
}

// isQuit recognises a well-formed QUIT command.
func isQuit(cmd resp.Data) bool {
	if cmd.Kind != resp.KindArray || cmd.Null || len(cmd.Elems) == 0 {
		return false
	}
	first := cmd.Elems[0]
	if first.Kind != resp.KindBulkString || first.Null {
		return false
	}
	return strings.EqualFold(string(first.Bulk), "QUIT")
}
