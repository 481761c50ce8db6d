package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single control frame. Anything larger is a
// broken or hostile peer.
const MaxFrameSize = 64 << 10

var (
	// ErrDaemonRunning is returned when another daemon instance
	// already answers on the control socket.
	ErrDaemonRunning = errors.New("daemon already running")

	// ErrDaemonUnreachable is returned when no daemon answers on the
	// control socket.
	ErrDaemonUnreachable = errors.New("daemon unreachable")

	// ErrFrameTooLarge is returned for frames exceeding MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	// ErrMalformedFrame is returned when a complete frame was read but
	// its payload does not decode. The stream stays frame-aligned.
	ErrMalformedFrame = errors.New("malformed frame")
)

// CommandType represents the control commands a client can send.
type CommandType string

const (
	CommandPing CommandType = "ping"
	CommandShow CommandType = "show"
	CommandHide CommandType = "hide"
)

// Direction selects which neighbor the switcher highlights on show.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// Command is a control request from client to daemon.
type Command struct {
	Command   CommandType `json:"command"`
	Direction Direction   `json:"direction,omitempty"`
	Modifiers []string    `json:"modifiers,omitempty"`
}

// Response is the daemon's answer to a Command.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Error  string `json:"error,omitempty"`
}

// NewOKResponse creates a successful response.
func NewOKResponse() *Response {
	return &Response{Status: "ok"}
}

// NewErrorResponse creates an error response with a message.
func NewErrorResponse(errMsg string) *Response {
	return &Response{Status: "error", Error: errMsg}
}

// WriteFrame writes v as a length-prefixed JSON frame: a 4-byte
// little-endian payload length followed by the payload itself.
func WriteFrame(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame into v.
func ReadFrame(r io.Reader, v interface{}) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size == 0 {
		return fmt.Errorf("%w: zero-length frame", ErrMalformedFrame)
	}
	if size > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("failed to read frame payload: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}
