package wire

import (
	"errors"
	"net"

	"go.uber.org/zap"
)

// HandlerFunc handles one decoded inbound message and returns the reply to
// send back before the connection is closed. Every gtstore role serves
// exactly one request per connection (spec.md §4.3, §4.4) — there is no
// persistent-connection, multi-message-per-socket mode.
type HandlerFunc func(msg Message) (replyType Type, replyPayload []byte)

// Server is a one-goroutine-per-connection TCP listener: the Go
// equivalent of the thread-per-connection model spec.md §5 mandates.
// Grounded on tripab-toy-dynamo/pkg/rpc.Server's accept-loop shape, with
// its net/http+JSON handling replaced by raw wire.Recv/Send framing.
type Server struct {
	ln      net.Listener
	handler HandlerFunc
	logger  *zap.Logger
}

// Listen binds addr and returns a Server ready to Serve.
func Listen(addr string, handler HandlerFunc, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{ln: ln, handler: handler, logger: logger}, nil
}

// Addr returns the listener's bound address (useful when addr was ":0").
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve blocks accepting connections until the listener is closed, at
// which point it returns nil. Each accepted connection is handled in its
// own goroutine and closed after a single request/reply.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("wire: accept failed", zap.Error(err))
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	msg, err := Recv(conn)
	if err != nil {
		s.logger.Debug("wire: recv failed", zap.Error(err))
		return
	}

	replyType, replyPayload := s.handler(msg)
	if replyType == 0 {
		// Handler declined to reply (the manager does this for an
		// unknown message type); the connection is closed unanswered.
		return
	}
	if err := Send(conn, replyType, replyPayload); err != nil {
		s.logger.Debug("wire: send reply failed", zap.Error(err))
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}
