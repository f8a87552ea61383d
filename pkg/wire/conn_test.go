package wire

import (
	"net"
	"testing"
	"time"
)

func TestSendRecvRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		done <- Send(client, CLIENT_PUT, []byte("hello|world"))
	}()

	msg, err := Recv(server)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if msg.Type != CLIENT_PUT {
		t.Errorf("expected type CLIENT_PUT, got %v", msg.Type)
	}
	if string(msg.Payload) != "hello|world" {
		t.Errorf("unexpected payload: %q", msg.Payload)
	}
}

func TestSendRecvEmptyPayload(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		done <- Send(client, HEARTBEAT, nil)
	}()

	msg, err := Recv(server)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.Type != HEARTBEAT || len(msg.Payload) != 0 {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestRoundtrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		msg, err := Recv(conn)
		if err != nil {
			return
		}
		_ = Send(conn, GET_OK, []byte("echo:"+string(msg.Payload)))
	}()

	reply, err := Roundtrip(ln.Addr().String(), 2*time.Second, CLIENT_GET, []byte("mykey"))
	if err != nil {
		t.Fatalf("Roundtrip failed: %v", err)
	}
	if reply.Type != GET_OK {
		t.Errorf("expected GET_OK, got %v", reply.Type)
	}
	if string(reply.Payload) != "echo:mykey" {
		t.Errorf("unexpected reply payload: %q", reply.Payload)
	}
}

func TestRoundtripDialFailure(t *testing.T) {
	// Port 1 is reserved and nothing should be listening on it on a test host.
	_, err := Roundtrip("127.0.0.1:1", 200*time.Millisecond, CLIENT_GET, nil)
	if err == nil {
		t.Fatal("expected dial error for unreachable address")
	}
}

func TestTypeStringUnknown(t *testing.T) {
	if got := Type(999).String(); got != "UNKNOWN_TYPE" {
		t.Errorf("expected UNKNOWN_TYPE, got %q", got)
	}
}
