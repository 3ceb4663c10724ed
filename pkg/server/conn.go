package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/pkg/wire"
)

// conn serves one client connection: a loop of read frame, dispatch,
// write response. Frames are handled one at a time per connection;
// concurrency across clients comes from the per-connection goroutines.
type conn struct {
	server *Server
	nc     net.Conn
}

func (c *conn) serve(ctx context.Context) {
	defer func() {
		// A panicking handler must not take the whole shard down.
		if r := recover(); r != nil {
			logger.Error("panic serving %s: %v", c.nc.RemoteAddr(), r)
		}
		_ = c.nc.Close()
	}()

	remote := c.nc.RemoteAddr().String()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// The idle deadline covers waiting for the next frame; the read
		// deadline takes over once its first bytes arrive. Reset here even
		// when idling is unlimited, so a previous frame's read deadline
		// does not leak into the wait.
		idle := time.Time{}
		if c.server.config.IdleTimeout > 0 {
			idle = time.Now().Add(c.server.config.IdleTimeout)
		}
		if err := c.nc.SetReadDeadline(idle); err != nil {
			return
		}

		keepServing, err := c.handleRequest(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("connection from %s closed by client", remote)
			case isTimeout(err):
				logger.Debug("connection from %s timed out", remote)
			default:
				logger.Debug("connection from %s failed: %v", remote, err)
			}
			return
		}
		if !keepServing {
			return
		}
	}
}

// handleRequest processes one frame. The bool result reports whether the
// stream is still framed: an unrecoverable decode failure answers what it
// can and then closes.
func (c *conn) handleRequest(ctx context.Context) (bool, error) {
	reader := &frameReader{nc: c.nc, timeout: c.server.config.ReadTimeout}
	req, err := wire.ReadMessage(reader, c.server.config.MaxMessageSize)
	if err != nil {
		var decodeErr *wire.DecodeError
		if errors.As(err, &decodeErr) {
			logger.Debug("malformed frame from %s: %v", c.nc.RemoteAddr(), err)
			resp := wire.NewResponse(decodeErr.ID, wire.StatusMalformed, decodeErr.Flag)
			if writeErr := c.writeResponse(resp); writeErr != nil {
				return false, writeErr
			}
			return decodeErr.Recoverable, nil
		}
		return false, err
	}

	resp := c.server.dispatch(ctx, req)
	if err := c.writeResponse(resp); err != nil {
		return false, err
	}
	return true, nil
}

// frameReader narrows the read deadline from the idle timeout to the frame
// read timeout as soon as a frame begins, so a client that opens a frame
// and stalls cannot hold the connection for the full idle window.
type frameReader struct {
	nc      net.Conn
	timeout time.Duration
	started bool
}

func (r *frameReader) Read(p []byte) (int, error) {
	n, err := r.nc.Read(p)
	if n > 0 && !r.started {
		r.started = true
		if r.timeout > 0 {
			if derr := r.nc.SetReadDeadline(time.Now().Add(r.timeout)); derr != nil && err == nil {
				err = derr
			}
		}
	}
	return n, err
}

func (c *conn) writeResponse(resp *wire.Message) error {
	if c.server.config.WriteTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
			return err
		}
	}
	return wire.WriteMessage(c.nc, resp, c.server.config.MaxMessageSize)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
