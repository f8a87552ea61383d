package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// Send writes a single framed message to conn: an 8-byte header (type,
// reserved, payload length, all network order) followed by payload.
// net.Conn.Write on a blocking socket either writes everything or returns
// an error, so unlike the original C++ send_all there is no short-write
// loop to hand-roll here — the net.Conn contract already gives it to us.
func Send(conn net.Conn, msgType Type, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("wire: payload too large: %d bytes", len(payload))
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint16(header[0:2], uint16(msgType))
	binary.BigEndian.PutUint16(header[2:4], 0) // reserved
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))

	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// Recv reads one framed message from conn, blocking until the full header
// and payload have arrived. io.ReadFull supplies the recv_all retry-on-
// short-read loop spec.md §5 calls for.
func Recv(conn net.Conn) (Message, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return Message{}, fmt.Errorf("wire: read header: %w", err)
	}

	msgType := Type(binary.BigEndian.Uint16(header[0:2]))
	payloadLen := binary.BigEndian.Uint32(header[4:8])
	if payloadLen > MaxPayloadSize {
		return Message{}, fmt.Errorf("wire: payload too large: %d bytes", payloadLen)
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return Message{}, fmt.Errorf("wire: read payload: %w", err)
		}
	}
	return Message{Type: msgType, Payload: payload}, nil
}

// Roundtrip dials a fresh connection to addr, sends one message, reads one
// reply, and closes the connection. Every client- and manager-initiated
// call in gtstore is exactly this shape (spec.md §4.2, §4.3): a fresh
// connection per attempt, never a pooled one — unlike the teacher's
// pkg/rpc.Client, which keeps a shared *http.Client with a connection
// pool (it doesn't fit: the spec requires a fresh connection on every
// replica attempt so a stale one can't silently mask a dead peer).
func Roundtrip(addr string, timeout time.Duration, reqType Type, reqPayload []byte) (Message, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return Message{}, fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := Send(conn, reqType, reqPayload); err != nil {
		return Message{}, err
	}
	return Recv(conn)
}
