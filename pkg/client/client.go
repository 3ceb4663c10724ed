// Package client implements the routing protocol client: it computes the
// owning shard for every path with the same router the servers use, keeps
// one connection per shard, and speaks the wire protocol over TCP.
//
// The same type serves two callers. External users (the CLI, tests) drive
// the client-facing opcodes; the engine's cross-shard validator uses the
// peer-query methods, which satisfy engine.PeerClient.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shardfs/shardfs/pkg/cluster"
	"github.com/shardfs/shardfs/pkg/namespace"
	"github.com/shardfs/shardfs/pkg/wire"
)

const (
	defaultCallTimeout = 5 * time.Second
	defaultDialTimeout = 2 * time.Second
)

// Options tunes a Client. Zero values select defaults.
type Options struct {
	// CallTimeout bounds one request/response exchange when the caller's
	// context carries no deadline of its own.
	CallTimeout time.Duration

	// DialTimeout bounds connection establishment to a shard.
	DialTimeout time.Duration

	// MaxMessageSize caps frames in both directions.
	MaxMessageSize uint32
}

// Client routes operations to their owning shards. Safe for concurrent
// use; calls to the same shard are serialized over its one connection.
type Client struct {
	router      *cluster.Router
	callTimeout time.Duration
	dialTimeout time.Duration
	maxMessage  uint32
	nextID      atomic.Uint32

	mu    sync.Mutex
	conns map[cluster.ShardID]*shardConn
}

// shardConn is the single connection to one shard. The mutex spans a whole
// request/response exchange: the protocol answers in order, so interleaved
// writers would cross-correlate responses.
type shardConn struct {
	mu sync.Mutex
	nc net.Conn
}

func New(router *cluster.Router, opts Options) *Client {
	if opts.CallTimeout == 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.MaxMessageSize == 0 {
		opts.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	return &Client{
		router:      router,
		callTimeout: opts.CallTimeout,
		dialTimeout: opts.DialTimeout,
		maxMessage:  opts.MaxMessageSize,
		conns:       make(map[cluster.ShardID]*shardConn),
	}
}

// Close drops every shard connection. In-flight calls fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sc := range c.conns {
		sc.mu.Lock()
		if sc.nc != nil {
			_ = sc.nc.Close()
			sc.nc = nil
		}
		sc.mu.Unlock()
	}
	return nil
}

// ============================================================================
// Client-facing operations
// ============================================================================

func (c *Client) CreateFile(ctx context.Context, path string) error {
	_, err := c.callPath(ctx, wire.OpCreateFile, path)
	return err
}

func (c *Client) CreateDir(ctx context.Context, path string) error {
	_, err := c.callPath(ctx, wire.OpCreateDir, path)
	return err
}

func (c *Client) DeleteFile(ctx context.Context, path string) error {
	_, err := c.callPath(ctx, wire.OpDeleteFile, path)
	return err
}

func (c *Client) DeleteDir(ctx context.Context, path string) error {
	_, err := c.callPath(ctx, wire.OpDeleteDir, path)
	return err
}

func (c *Client) OpenFile(ctx context.Context, path string) error {
	_, err := c.callPath(ctx, wire.OpOpenFile, path)
	return err
}

// GetFileAttr fetches the entry stored at path.
func (c *Client) GetFileAttr(ctx context.Context, path string) (namespace.Entry, error) {
	resp, err := c.callPath(ctx, wire.OpGetFileAttr, path)
	if err != nil {
		return namespace.Entry{}, err
	}
	field, err := resp.Field(0)
	if err != nil {
		return namespace.Entry{}, fmt.Errorf("attr response: %w", err)
	}
	kind, attr, err := wire.DecodeAttr(field)
	if err != nil {
		return namespace.Entry{}, fmt.Errorf("attr response: %w", err)
	}
	return namespace.Entry{Path: path, Kind: kind, Attr: attr}, nil
}

// ReadDir returns the complete sorted listing of the directory at path,
// assembled by the owning shard from the whole cluster.
func (c *Client) ReadDir(ctx context.Context, path string) ([]string, error) {
	resp, err := c.callPath(ctx, wire.OpReadDir, path)
	if err != nil {
		return nil, err
	}
	return wire.FieldNames(resp.Fields), nil
}

// ReadFile returns the file's content bytes.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.callPath(ctx, wire.OpReadFile, path)
	if err != nil {
		return nil, err
	}
	data, err := resp.Field(0)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// WriteFile replaces the file's content.
func (c *Client) WriteFile(ctx context.Context, path string, data []byte) error {
	shard := c.router.Route(path)
	_, err := c.call(ctx, shard, wire.OpWriteFile, path, [][]byte{[]byte(path), data})
	return err
}

// ============================================================================
// Peer-query operations (engine.PeerClient)
// ============================================================================

// Exists asks shard whether it holds an entry at path. A NotFound status is
// the negative answer, not an error; transport failures surface as plain
// errors for the engine to classify as ShardUnavailable.
func (c *Client) Exists(ctx context.Context, shard cluster.ShardID, path string) (bool, error) {
	_, err := c.call(ctx, shard, wire.OpExists, path, [][]byte{[]byte(path)})
	if err == nil {
		return true, nil
	}
	var nsErr *namespace.Error
	if errors.As(err, &nsErr) && nsErr.Code == namespace.ErrNotFound {
		return false, nil
	}
	return false, err
}

// ChildExists asks shard whether it owns any immediate child of prefix.
func (c *Client) ChildExists(ctx context.Context, shard cluster.ShardID, prefix string) (bool, error) {
	resp, err := c.call(ctx, shard, wire.OpChildExists, prefix, [][]byte{[]byte(prefix)})
	if err != nil {
		return false, err
	}
	field, err := resp.Field(0)
	if err != nil {
		return false, fmt.Errorf("child-exists response: %w", err)
	}
	return wire.DecodeBool(field)
}

// ListChildren asks shard for its locally-owned immediate children of
// prefix.
func (c *Client) ListChildren(ctx context.Context, shard cluster.ShardID, prefix string) ([]string, error) {
	resp, err := c.call(ctx, shard, wire.OpListChildren, prefix, [][]byte{[]byte(prefix)})
	if err != nil {
		return nil, err
	}
	return wire.FieldNames(resp.Fields), nil
}

// ============================================================================
// Transport
// ============================================================================

func (c *Client) callPath(ctx context.Context, op wire.Op, path string) (*wire.Message, error) {
	shard := c.router.Route(path)
	return c.call(ctx, shard, op, path, [][]byte{[]byte(path)})
}

// call performs one exchange with shard. A non-OK status comes back as the
// matching *namespace.Error; transport and framing failures come back as
// plain errors with the connection dropped, so the next call redials.
func (c *Client) call(ctx context.Context, shard cluster.ShardID, op wire.Op, path string, fields [][]byte) (*wire.Message, error) {
	sc := c.shardConn(shard)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.nc == nil {
		nc, err := c.dial(ctx, shard)
		if err != nil {
			return nil, err
		}
		sc.nc = nc
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.callTimeout)
	}
	if err := sc.nc.SetDeadline(deadline); err != nil {
		sc.drop()
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	id := c.nextID.Add(1)
	req := wire.NewRequest(id, op, fields...)
	if err := wire.WriteMessage(sc.nc, req, c.maxMessage); err != nil {
		sc.drop()
		return nil, fmt.Errorf("shard %d: %w", shard, err)
	}

	resp, err := wire.ReadMessage(sc.nc, c.maxMessage)
	if err != nil {
		sc.drop()
		return nil, fmt.Errorf("shard %d: %w", shard, err)
	}
	if resp.ID != id {
		// Correlation is broken; nothing on this connection can be trusted.
		sc.drop()
		return nil, fmt.Errorf("shard %d: response id %d does not match request id %d", shard, resp.ID, id)
	}

	if status := resp.Status(); status != wire.StatusOK {
		return nil, statusError(status, path)
	}
	return resp, nil
}

func (c *Client) shardConn(shard cluster.ShardID) *shardConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.conns[shard]
	if !ok {
		sc = &shardConn{}
		c.conns[shard] = sc
	}
	return sc
}

func (c *Client) dial(ctx context.Context, shard cluster.ShardID) (net.Conn, error) {
	addr, err := c.router.Topology().Addr(shard)
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: c.dialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial shard %d at %s: %w", shard, addr, err)
	}
	return nc, nil
}

// drop closes and forgets the connection. Caller holds sc.mu.
func (sc *shardConn) drop() {
	if sc.nc != nil {
		_ = sc.nc.Close()
		sc.nc = nil
	}
}

// statusError converts a non-OK wire status back into the same domain error
// the servicing shard raised, so callers on both sides of the wire can test
// categories with errors.As.
func statusError(status wire.Status, path string) error {
	switch status {
	case wire.StatusAlreadyExists:
		return namespace.NewAlreadyExists(path)
	case wire.StatusNotFound:
		return namespace.NewNotFound(path)
	case wire.StatusNotEmpty:
		return namespace.NewNotEmpty(path)
	case wire.StatusWrongType:
		return &namespace.Error{Code: namespace.ErrWrongType, Message: "wrong entry type", Path: path}
	case wire.StatusShardUnavailable:
		return namespace.NewShardUnavailable(path, "reported by servicing shard")
	case wire.StatusMalformed:
		return namespace.NewMalformed("rejected as malformed", path)
	case wire.StatusForbidden:
		return namespace.NewForbidden("operation forbidden", path)
	default:
		return namespace.NewInternal(fmt.Sprintf("status %s", status), path)
	}
}
