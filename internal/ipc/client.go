package ipc

import (
	"fmt"
	"net"
	"time"

	"github.com/wayswitch/wayswitch/internal/runtimepath"
)

// Client talks to a running daemon over the control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a control client for the default socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; send surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath, 5*time.Second)
}

// NewClientAt creates a control client for an explicit socket path and
// timeout. Used for the startup liveness probe and in tests.
func NewClientAt(socketPath string, timeout time.Duration) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// send dials the daemon, sends one command and waits for its response.
func (c *Client) send(cmd Command) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := WriteFrame(conn, &cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var resp Response
	if err := ReadFrame(conn, &resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.Status != "ok" {
		return &resp, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// Ping checks that a daemon answers on the socket.
func (c *Client) Ping() error {
	_, err := c.send(Command{Command: CommandPing})
	return err
}

// Show asks the daemon to show the switcher, highlighting the neighbor
// in the given direction. Modifiers, when non-empty, replace the
// configured hold set for this invocation.
func (c *Client) Show(direction Direction, modifiers []string) error {
	_, err := c.send(Command{
		Command:   CommandShow,
		Direction: direction,
		Modifiers: modifiers,
	})
	return err
}

// Hide asks the daemon to dismiss the switcher without activating
// anything.
func (c *Client) Hide() error {
	_, err := c.send(Command{Command: CommandHide})
	return err
}
