package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/wayswitch/wayswitch/internal/logger"
	"github.com/wayswitch/wayswitch/internal/runtimepath"
)

// probeTimeout bounds the liveness check against a pre-existing socket.
const probeTimeout = 300 * time.Millisecond

// Request carries a parsed client command into the daemon loop. The
// daemon answers on Reply; the connection goroutine forwards the
// answer back to the client.
type Request struct {
	Command Command
	Reply   chan *Response
}

// Server accepts control connections and forwards commands to the
// daemon. It never interprets commands itself.
type Server struct {
	socketPath string
	listener   net.Listener
	requests   chan<- Request

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a control server that forwards commands to requests.
func NewServer(requests chan<- Request) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve control socket path: %w", err)
	}
	return &Server{
		socketPath: socketPath,
		requests:   requests,
	}, nil
}

// Start claims the control socket and begins accepting connections.
// If a live daemon already answers on the socket, ErrDaemonRunning is
// returned; a dead leftover socket file is removed and taken over.
func (s *Server) Start() error {
	log := logger.WithComponent("ipc")

	if _, err := os.Stat(s.socketPath); err == nil {
		probe := NewClientAt(s.socketPath, probeTimeout)
		if err := probe.Ping(); err == nil {
			return fmt.Errorf("%w at %s", ErrDaemonRunning, s.socketPath)
		}
		log.Info().Str("path", s.socketPath).Msg("Removing stale control socket")
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Info().Str("path", s.socketPath).Msg("Control server listening")

	go s.acceptLoop()
	return nil
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	log := logger.WithComponent("ipc")
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Warn().Err(err).Msg("Control accept error")
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves one client. A connection may carry several
// commands back to back; it ends when the client closes. Frames that
// fail to decode are answered with an error response, not dropped.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	log := logger.WithComponent("ipc")

	for {
		var cmd Command
		if err := ReadFrame(conn, &cmd); err != nil {
			// EOF is the normal end of a client session.
			if errors.Is(err, io.EOF) {
				return
			}
			log.Warn().Err(err).Msg("Rejecting malformed control frame")
			if werr := WriteFrame(conn, NewErrorResponse(err.Error())); werr != nil {
				return
			}
			if errors.Is(err, ErrMalformedFrame) {
				continue
			}
			// Oversized or truncated frames leave the stream out of
			// frame alignment; the session cannot continue safely.
			return
		}

		log.Debug().
			Str("command", string(cmd.Command)).
			Str("direction", string(cmd.Direction)).
			Msg("Control command received")

		req := Request{
			Command: cmd,
			Reply:   make(chan *Response, 1),
		}

		var resp *Response
		select {
		case s.requests <- req:
			select {
			case resp = <-req.Reply:
			case <-time.After(5 * time.Second):
				resp = NewErrorResponse("daemon did not answer in time")
			}
		case <-time.After(5 * time.Second):
			resp = NewErrorResponse("daemon busy")
		}

		if err := WriteFrame(conn, resp); err != nil {
			log.Warn().Err(err).Msg("Failed to send control response")
			return
		}
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Stop shuts down the control server and removes the socket file.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
