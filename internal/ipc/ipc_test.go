package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []Command{
		{Command: CommandPing},
		{Command: CommandHide},
		{Command: CommandShow, Direction: DirectionNext},
		{Command: CommandShow, Direction: DirectionPrev, Modifiers: []string{"alt", "shift"}},
	}

	for _, cmd := range cases {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, &cmd); err != nil {
			t.Fatalf("WriteFrame(%+v): %v", cmd, err)
		}

		var got Command
		if err := ReadFrame(&buf, &got); err != nil {
			t.Fatalf("ReadFrame(%+v): %v", cmd, err)
		}
		if got.Command != cmd.Command || got.Direction != cmd.Direction {
			t.Fatalf("round trip changed command: sent %+v, got %+v", cmd, got)
		}
		if len(got.Modifiers) != len(cmd.Modifiers) {
			t.Fatalf("round trip changed modifiers: sent %v, got %v", cmd.Modifiers, got.Modifiers)
		}
	}
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], MaxFrameSize+1)
	buf.Write(hdr[:])

	var cmd Command
	err := ReadFrame(&buf, &cmd)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("ReadFrame oversize: got %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameRejectsZeroLength(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})

	var cmd Command
	if err := ReadFrame(buf, &cmd); err == nil {
		t.Fatal("ReadFrame accepted a zero-length frame")
	}
}

func TestReadFrameRejectsMalformedJSON(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("{not json")
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	buf.Write(hdr[:])
	buf.Write(payload)

	var cmd Command
	if err := ReadFrame(&buf, &cmd); err == nil {
		t.Fatal("ReadFrame accepted malformed JSON")
	}
}

// startTestServer binds a server in a private runtime dir and answers
// every command with ok.
func startTestServer(t *testing.T) (*Server, chan Request) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	requests := make(chan Request, 4)
	srv, err := NewServer(requests)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)

	go func() {
		for req := range requests {
			req.Reply <- NewOKResponse()
		}
	}()
	return srv, requests
}

func TestServerAnswersCommands(t *testing.T) {
	srv, _ := startTestServer(t)

	client := NewClientAt(srv.SocketPath(), time.Second)
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := client.Show(DirectionNext, []string{"alt"}); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if err := client.Hide(); err != nil {
		t.Fatalf("Hide: %v", err)
	}
}

func TestServerForwardsCommandVerbatim(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	requests := make(chan Request, 1)
	srv, err := NewServer(requests)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	done := make(chan Command, 1)
	go func() {
		req := <-requests
		done <- req.Command
		req.Reply <- NewOKResponse()
	}()

	client := NewClientAt(srv.SocketPath(), time.Second)
	if err := client.Show(DirectionPrev, []string{"super"}); err != nil {
		t.Fatalf("Show: %v", err)
	}

	cmd := <-done
	if cmd.Command != CommandShow || cmd.Direction != DirectionPrev {
		t.Fatalf("daemon saw %+v", cmd)
	}
	if len(cmd.Modifiers) != 1 || cmd.Modifiers[0] != "super" {
		t.Fatalf("daemon saw modifiers %v", cmd.Modifiers)
	}
}

func TestServerAnswersMalformedFrameWithError(t *testing.T) {
	srv, _ := startTestServer(t)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	payload := []byte("{not json")
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := conn.Write(hdr[:]); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var resp Response
	if err := ReadFrame(conn, &resp); err != nil {
		t.Fatalf("ReadFrame after malformed frame: %v", err)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("malformed frame answered with %+v, want error response", resp)
	}

	// The session survives the bad frame; a well-formed command on the
	// same connection still works.
	if err := WriteFrame(conn, &Command{Command: CommandPing}); err != nil {
		t.Fatalf("WriteFrame ping: %v", err)
	}
	if err := ReadFrame(conn, &resp); err != nil {
		t.Fatalf("ReadFrame ping response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("ping after malformed frame answered with %+v", resp)
	}
}

func TestServerAnswersOversizeFrameWithError(t *testing.T) {
	srv, _ := startTestServer(t)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], MaxFrameSize+1)
	if _, err := conn.Write(hdr[:]); err != nil {
		t.Fatalf("write header: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var resp Response
	if err := ReadFrame(conn, &resp); err != nil {
		t.Fatalf("ReadFrame after oversize frame: %v", err)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("oversize frame answered with %+v, want error response", resp)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	srv, _ := startTestServer(t)
	_ = srv

	second, err := NewServer(make(chan Request))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	err = second.Start()
	if !errors.Is(err, ErrDaemonRunning) {
		t.Fatalf("second Start: got %v, want ErrDaemonRunning", err)
	}
}

func TestStaleSocketIsReclaimed(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	requests := make(chan Request, 1)
	first, err := NewServer(requests)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := first.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	// Close the listener without removing the socket file, leaving a
	// dead socket behind.
	first.shutdownMu.Lock()
	first.shuttingDown = true
	first.shutdownMu.Unlock()
	first.listener.Close()

	second, err := NewServer(requests)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := second.Start(); err != nil {
		t.Fatalf("second Start over stale socket: %v", err)
	}
	defer second.Stop()

	go func() {
		req := <-requests
		req.Reply <- NewOKResponse()
	}()

	client := NewClientAt(second.SocketPath(), time.Second)
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping after takeover: %v", err)
	}
}

func TestClientUnreachableDaemon(t *testing.T) {
	client := NewClientAt("/nonexistent/wayswitch.sock", 200*time.Millisecond)
	err := client.Ping()
	if !errors.Is(err, ErrDaemonUnreachable) {
		t.Fatalf("Ping: got %v, want ErrDaemonUnreachable", err)
	}
}
