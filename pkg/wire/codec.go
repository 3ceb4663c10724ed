package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DecodeError describes a frame that could not be decoded.
//
// Recoverable reports whether the stream is still framed: the declared body
// was fully consumed, so the connection can answer Malformed and keep
// serving. When false the reader has no way to find the next frame boundary
// and the connection must close after responding (if ID is known at all).
type DecodeError struct {
	ID          uint32
	Flag        uint32
	Recoverable bool
	Reason      string
}

func (e *DecodeError) Error() string {
	return "malformed frame: " + e.Reason
}

// Encode serializes the message. Fails when the encoded size would exceed
// max (0 means DefaultMaxMessageSize).
func (m *Message) Encode(max uint32) ([]byte, error) {
	if max == 0 {
		max = DefaultMaxMessageSize
	}

	total := uint64(HeaderSize)
	for _, f := range m.Fields {
		total += 4 + uint64(len(f))
	}
	if total > uint64(max) {
		return nil, fmt.Errorf("frame size %d exceeds maximum %d", total, max)
	}

	buf := make([]byte, HeaderSize, total)
	binary.LittleEndian.PutUint32(buf[0:4], m.ID)
	binary.LittleEndian.PutUint32(buf[4:8], m.Code)
	binary.LittleEndian.PutUint32(buf[8:12], m.Flag)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(total))

	var prefix [4]byte
	for _, f := range m.Fields {
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(f)))
		buf = append(buf, prefix[:]...)
		buf = append(buf, f...)
	}
	return buf, nil
}

// WriteMessage encodes and writes one frame.
func WriteMessage(w io.Writer, m *Message, max uint32) error {
	buf, err := m.Encode(max)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadMessage reads and decodes one frame.
//
// Transport errors (including io.EOF on a clean close between frames) are
// returned as-is. Framing violations return *DecodeError; callers should
// check Recoverable to decide whether the connection can continue.
func ReadMessage(r io.Reader, max uint32) (*Message, error) {
	if max == 0 {
		max = DefaultMaxMessageSize
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	id := binary.LittleEndian.Uint32(header[0:4])
	code := binary.LittleEndian.Uint32(header[4:8])
	flag := binary.LittleEndian.Uint32(header[8:12])
	total := binary.LittleEndian.Uint32(header[12:16])

	if total < HeaderSize {
		return nil, &DecodeError{
			ID:     id,
			Flag:   flag,
			Reason: fmt.Sprintf("total_length %d shorter than header", total),
		}
	}
	if total > max {
		return nil, &DecodeError{
			ID:     id,
			Flag:   flag,
			Reason: fmt.Sprintf("total_length %d exceeds maximum %d", total, max),
		}
	}

	body := make([]byte, total-HeaderSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	fields, err := splitFields(body)
	if err != nil {
		// The declared body was consumed, so the stream is still framed.
		return nil, &DecodeError{ID: id, Flag: flag, Recoverable: true, Reason: err.Error()}
	}

	return &Message{ID: id, Code: code, Flag: flag, Fields: fields}, nil
}

// splitFields walks the body as a sequence of length-prefixed fields.
func splitFields(body []byte) ([][]byte, error) {
	var fields [][]byte
	off := 0
	for off < len(body) {
		if len(body)-off < 4 {
			return nil, fmt.Errorf("truncated length prefix at offset %d", off)
		}
		length := binary.LittleEndian.Uint32(body[off : off+4])
		off += 4
		if uint32(len(body)-off) < length {
			return nil, fmt.Errorf("field length %d runs past body end", length)
		}
		fields = append(fields, body[off:off+int(length)])
		off += int(length)
	}
	return fields, nil
}
