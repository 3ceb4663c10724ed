package server

import (
	"context"
	"errors"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/pkg/namespace"
	"github.com/shardfs/shardfs/pkg/wire"
)

// dispatch routes one decoded request to the engine and builds the
// response frame. The request's id and flag are echoed back unchanged.
func (s *Server) dispatch(ctx context.Context, req *wire.Message) *wire.Message {
	op := req.Op()

	path, err := req.FieldString(0)
	if err != nil {
		return s.fail(req, op, "", namespace.NewMalformed("request carries no path field", ""))
	}

	switch op {
	case wire.OpCreateFile:
		return s.statusOnly(req, op, path, s.engine.CreateFile(ctx, path))

	case wire.OpCreateDir:
		return s.statusOnly(req, op, path, s.engine.CreateDir(ctx, path))

	case wire.OpDeleteFile:
		return s.statusOnly(req, op, path, s.engine.DeleteFile(ctx, path))

	case wire.OpDeleteDir:
		return s.statusOnly(req, op, path, s.engine.DeleteDir(ctx, path))

	case wire.OpOpenFile:
		return s.statusOnly(req, op, path, s.engine.OpenFile(ctx, path))

	case wire.OpGetFileAttr:
		entry, err := s.engine.GetFileAttr(ctx, path)
		if err != nil {
			return s.fail(req, op, path, err)
		}
		return s.ok(req, wire.EncodeAttr(entry))

	case wire.OpReadDir:
		names, err := s.engine.ReadDir(ctx, path)
		if err != nil {
			return s.fail(req, op, path, err)
		}
		return s.ok(req, wire.NameFields(names)...)

	case wire.OpReadFile:
		data, err := s.engine.ReadFile(ctx, path)
		if err != nil {
			return s.fail(req, op, path, err)
		}
		return s.ok(req, data)

	case wire.OpWriteFile:
		data, err := req.Field(1)
		if err != nil {
			return s.fail(req, op, path, namespace.NewMalformed("write request carries no data field", path))
		}
		return s.statusOnly(req, op, path, s.engine.WriteFile(ctx, path, data))

	case wire.OpExists:
		exists, err := s.engine.Exists(ctx, path)
		if err != nil {
			return s.fail(req, op, path, err)
		}
		if !exists {
			return wire.NewResponse(req.ID, wire.StatusNotFound, req.Flag)
		}
		return s.ok(req)

	case wire.OpChildExists:
		has, err := s.engine.ChildExists(ctx, path)
		if err != nil {
			return s.fail(req, op, path, err)
		}
		return s.ok(req, wire.EncodeBool(has))

	case wire.OpListChildren:
		names, err := s.engine.ListChildren(ctx, path)
		if err != nil {
			return s.fail(req, op, path, err)
		}
		return s.ok(req, wire.NameFields(names)...)

	default:
		logger.Debug("unknown opcode %d from request %d", req.Code, req.ID)
		return wire.NewResponse(req.ID, wire.StatusMalformed, req.Flag)
	}
}

func (s *Server) ok(req *wire.Message, fields ...[]byte) *wire.Message {
	return wire.NewResponse(req.ID, wire.StatusOK, req.Flag, fields...)
}

func (s *Server) statusOnly(req *wire.Message, op wire.Op, path string, err error) *wire.Message {
	if err != nil {
		return s.fail(req, op, path, err)
	}
	return s.ok(req)
}

func (s *Server) fail(req *wire.Message, op wire.Op, path string, err error) *wire.Message {
	status := statusOf(err)
	if status == wire.StatusInternal || status == wire.StatusShardUnavailable {
		logger.Warn("%s %s failed: %v", op, path, err)
	} else {
		logger.Debug("%s %s -> %s", op, path, status)
	}
	return wire.NewResponse(req.ID, status, req.Flag)
}

// statusOf maps the domain error taxonomy onto wire statuses. Anything
// outside the taxonomy (store I/O, context cancellation) is Internal.
func statusOf(err error) wire.Status {
	var nsErr *namespace.Error
	if !errors.As(err, &nsErr) {
		return wire.StatusInternal
	}
	switch nsErr.Code {
	case namespace.ErrAlreadyExists:
		return wire.StatusAlreadyExists
	case namespace.ErrNotFound:
		return wire.StatusNotFound
	case namespace.ErrNotEmpty:
		return wire.StatusNotEmpty
	case namespace.ErrWrongType:
		return wire.StatusWrongType
	case namespace.ErrShardUnavailable:
		return wire.StatusShardUnavailable
	case namespace.ErrMalformed:
		return wire.StatusMalformed
	case namespace.ErrForbidden:
		return wire.StatusForbidden
	default:
		return wire.StatusInternal
	}
}
