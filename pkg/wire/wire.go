// Package wire implements the shardfs binary protocol.
//
// Every frame, request or response, starts with a fixed 16-byte header of
// four little-endian uint32 fields:
//
//	[id][opcode_or_status][flag][total_length]
//
// id is a correlation token echoed in the response. The second field is the
// opcode in requests and the status in responses (0 = success). flag is
// reserved and forwarded unchanged. total_length counts header plus body.
//
// The body is an ordered sequence of length-prefixed fields, each a 4-byte
// little-endian length followed by that many bytes:
//
//	[len u32][bytes...][len u32][bytes...]...
//
// Path-bearing requests carry the path as the first field. Payload-bearing
// operations append further fields (WriteFile data, ReadFile content, attr
// blocks, directory listings). The codec composes and parses any ordered
// field sequence; it never assumes a fixed count.
package wire

// HeaderSize is the fixed size of the frame header in bytes.
const HeaderSize = 16

// DefaultMaxMessageSize bounds total_length on received frames. Larger
// declarations are rejected before any body allocation happens.
const DefaultMaxMessageSize = 4 << 20

// Op identifies a protocol operation.
type Op uint32

const (
	OpCreateFile  Op = 1
	OpCreateDir   Op = 2
	OpGetFileAttr Op = 3
	OpReadDir     Op = 4
	OpOpenFile    Op = 5
	OpReadFile    Op = 6
	OpWriteFile   Op = 7
	OpDeleteFile  Op = 8
	OpDeleteDir   Op = 9

	// Internal peer-query opcodes. Issued only between cluster members by
	// the cross-shard validation path, never by external clients.
	OpExists       Op = 10
	OpChildExists  Op = 11
	OpListChildren Op = 12
)

func (o Op) String() string {
	switch o {
	case OpCreateFile:
		return "CreateFile"
	case OpCreateDir:
		return "CreateDir"
	case OpGetFileAttr:
		return "GetFileAttr"
	case OpReadDir:
		return "ReadDir"
	case OpOpenFile:
		return "OpenFile"
	case OpReadFile:
		return "ReadFile"
	case OpWriteFile:
		return "WriteFile"
	case OpDeleteFile:
		return "DeleteFile"
	case OpDeleteDir:
		return "DeleteDir"
	case OpExists:
		return "Exists"
	case OpChildExists:
		return "ChildExists"
	case OpListChildren:
		return "ListChildren"
	default:
		return "Unknown"
	}
}

// Internal reports whether the opcode is a peer-query opcode that external
// clients must not issue.
func (o Op) Internal() bool {
	return o == OpExists || o == OpChildExists || o == OpListChildren
}

// Status is the result category carried in response headers.
type Status uint32

const (
	StatusOK               Status = 0
	StatusAlreadyExists    Status = 1
	StatusNotFound         Status = 2
	StatusNotEmpty         Status = 3
	StatusWrongType        Status = 4
	StatusShardUnavailable Status = 5
	StatusMalformed        Status = 6
	StatusForbidden        Status = 7
	StatusInternal         Status = 8
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusAlreadyExists:
		return "AlreadyExists"
	case StatusNotFound:
		return "NotFound"
	case StatusNotEmpty:
		return "NotEmpty"
	case StatusWrongType:
		return "WrongType"
	case StatusShardUnavailable:
		return "ShardUnavailable"
	case StatusMalformed:
		return "Malformed"
	case StatusForbidden:
		return "Forbidden"
	case StatusInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Message is one decoded frame. Code holds the opcode for requests and the
// status for responses; the header layout is identical either way.
type Message struct {
	ID     uint32
	Code   uint32
	Flag   uint32
	Fields [][]byte
}

// NewRequest builds a request frame for op with the given body fields.
func NewRequest(id uint32, op Op, fields ...[]byte) *Message {
	return &Message{ID: id, Code: uint32(op), Fields: fields}
}

// NewResponse builds a response frame echoing id and flag from the request.
func NewResponse(id uint32, status Status, flag uint32, fields ...[]byte) *Message {
	return &Message{ID: id, Code: uint32(status), Flag: flag, Fields: fields}
}

// Op returns the Code interpreted as an opcode.
func (m *Message) Op() Op {
	return Op(m.Code)
}

// Status returns the Code interpreted as a status.
func (m *Message) Status() Status {
	return Status(m.Code)
}

// FieldString returns body field i as a string.
func (m *Message) FieldString(i int) (string, error) {
	b, err := m.Field(i)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Field returns body field i.
func (m *Message) Field(i int) ([]byte, error) {
	if i < 0 || i >= len(m.Fields) {
		return nil, &DecodeError{
			ID:          m.ID,
			Flag:        m.Flag,
			Recoverable: true,
			Reason:      "missing body field",
		}
	}
	return m.Fields[i], nil
}
