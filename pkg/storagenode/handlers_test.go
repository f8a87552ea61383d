package storagenode

import (
	"testing"

	"github.com/dreamware/gtstore/pkg/config"
	"github.com/dreamware/gtstore/pkg/ring"
	"github.com/dreamware/gtstore/pkg/wire"
	"go.uber.org/zap"
)

func newTestNode(t *testing.T, id string) *Node {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Replication = 1
	n := New(id, ring.Address{Host: "127.0.0.1", Port: 6000}, cfg, zap.NewNop(), nil)
	n.table.Register(id, n.Self, 4)
	return n
}

func TestSmokePutThenGet(t *testing.T) {
	n := newTestNode(t, "node-1")

	replyType, _ := n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("x|1")})
	if replyType != wire.PUT_OK {
		t.Fatalf("expected PUT_OK, got %v", replyType)
	}

	replyType, payload := n.Handle(wire.Message{Type: wire.CLIENT_GET, Payload: []byte("x")})
	if replyType != wire.GET_OK || string(payload) != "1" {
		t.Fatalf("expected GET_OK \"1\", got %v %q", replyType, payload)
	}
}

func TestMultiKeyTrace(t *testing.T) {
	n := newTestNode(t, "node-1")

	n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("key1|v1")})
	n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("key1|v2")})
	n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("key2|v3")})

	_, p1 := n.Handle(wire.Message{Type: wire.CLIENT_GET, Payload: []byte("key1")})
	if string(p1) != "v2" {
		t.Fatalf("expected key1=v2, got %q", p1)
	}
	_, p2 := n.Handle(wire.Message{Type: wire.CLIENT_GET, Payload: []byte("key2")})
	if string(p2) != "v3" {
		t.Fatalf("expected key2=v3, got %q", p2)
	}
}

func TestGetMissingKeyReturnsError(t *testing.T) {
	n := newTestNode(t, "node-1")
	replyType, _ := n.Handle(wire.Message{Type: wire.CLIENT_GET, Payload: []byte("nope")})
	if replyType != wire.ERROR {
		t.Fatalf("expected ERROR for missing key, got %v", replyType)
	}
}

func TestPausedNodeRejectsClientTraffic(t *testing.T) {
	n := newTestNode(t, "node-1")

	replyType, _ := n.Handle(wire.Message{Type: wire.PAUSE_NODE})
	if replyType != wire.PAUSE_ACK {
		t.Fatalf("expected PAUSE_ACK, got %v", replyType)
	}

	replyType, _ = n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("x|1")})
	if replyType != wire.ERROR {
		t.Fatalf("expected ERROR while paused, got %v", replyType)
	}
	replyType, _ = n.Handle(wire.Message{Type: wire.CLIENT_GET, Payload: []byte("x")})
	if replyType != wire.ERROR {
		t.Fatalf("expected ERROR while paused, got %v", replyType)
	}
	replyType, _ = n.Handle(wire.Message{Type: wire.CLIENT_DELETE, Payload: []byte("x")})
	if replyType != wire.ERROR {
		t.Fatalf("expected ERROR while paused, got %v", replyType)
	}
}

func TestPausedNodeServesManagerAndReplicaTraffic(t *testing.T) {
	n := newTestNode(t, "node-1")
	n.Handle(wire.Message{Type: wire.PAUSE_NODE})

	replyType, _ := n.Handle(wire.Message{Type: wire.REPL_PUT, Payload: []byte("x|1")})
	if replyType != wire.PUT_OK {
		t.Fatalf("expected REPL_PUT to succeed while paused, got %v", replyType)
	}

	replyType, payload := n.Handle(wire.Message{Type: wire.MANAGER_GET, Payload: []byte("x")})
	if replyType != wire.GET_OK || string(payload) != "1" {
		t.Fatalf("expected MANAGER_GET to succeed while paused, got %v %q", replyType, payload)
	}

	replyType, _ = n.Handle(wire.Message{Type: wire.GET_ALL_KEYS})
	if replyType != wire.ALL_KEYS {
		t.Fatalf("expected GET_ALL_KEYS to succeed while paused, got %v", replyType)
	}

	replyType, _ = n.Handle(wire.Message{Type: wire.AVAILABILITY_CHECK})
	if replyType != wire.AVAILABLE_STATUS {
		t.Fatalf("expected AVAILABILITY_CHECK to succeed while paused, got %v", replyType)
	}

	replyType, _ = n.Handle(wire.Message{Type: wire.RESUME_NODE})
	if replyType != wire.RESUME_ACK {
		t.Fatalf("expected RESUME_NODE to succeed while paused, got %v", replyType)
	}
}

func TestAvailabilityContract(t *testing.T) {
	n := newTestNode(t, "node-1")

	_, payload := n.Handle(wire.Message{Type: wire.AVAILABILITY_CHECK})
	if string(payload) != "yes" {
		t.Fatalf("expected available with empty lock table, got %q", payload)
	}

	token, ok := n.locks.TryAcquire("held-key")
	if !ok {
		t.Fatal("expected to acquire lock")
	}
	_, payload = n.Handle(wire.Message{Type: wire.AVAILABILITY_CHECK})
	if string(payload) != "no" {
		t.Fatalf("expected unavailable while a lock is held, got %q", payload)
	}
	n.locks.Release("held-key", token)
}

func TestWriteConflictOneWinsOneLoses(t *testing.T) {
	n := newTestNode(t, "node-1")

	token, ok := n.locks.TryAcquire("x")
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	replyType, payload := n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("x|1")})
	if replyType != wire.ERROR || string(payload) != "locked" {
		t.Fatalf("expected ERROR locked while key is held, got %v %q", replyType, payload)
	}

	n.locks.Release("x", token)

	replyType, _ = n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("x|1")})
	if replyType != wire.PUT_OK {
		t.Fatalf("expected PUT_OK once lock is free, got %v", replyType)
	}
}

func TestDeleteThenGetMisses(t *testing.T) {
	n := newTestNode(t, "node-1")
	n.Handle(wire.Message{Type: wire.CLIENT_PUT, Payload: []byte("x|1")})
	n.Handle(wire.Message{Type: wire.CLIENT_DELETE, Payload: []byte("x")})

	replyType, _ := n.Handle(wire.Message{Type: wire.CLIENT_GET, Payload: []byte("x")})
	if replyType != wire.ERROR {
		t.Fatalf("expected ERROR after delete, got %v", replyType)
	}
}

func TestManagerGetMissingKeyErrors(t *testing.T) {
	n := newTestNode(t, "node-1")
	replyType, _ := n.Handle(wire.Message{Type: wire.MANAGER_GET, Payload: []byte("nope")})
	if replyType != wire.ERROR {
		t.Fatalf("expected ERROR for missing key in MANAGER_GET, got %v", replyType)
	}
}

func TestTablePushRoundTrip(t *testing.T) {
	n := newTestNode(t, "node-1")

	src := ring.NewTable(2)
	src.Register("node-1", ring.Address{Host: "127.0.0.1", Port: 6000}, 4)
	src.Register("node-2", ring.Address{Host: "127.0.0.1", Port: 6001}, 4)

	rows := src.Rows()
	wireRows := make([]wire.TableRow, len(rows))
	for i, r := range rows {
		wireRows[i] = wire.TableRow{NodeID: r.NodeID, Host: r.Host, Port: r.Port, Token: r.Token}
	}
	payload := wire.EncodeTablePayload(src.K(), wireRows)

	replyType, _ := n.Handle(wire.Message{Type: wire.TABLE_PUSH, Payload: []byte(payload)})
	if replyType != wire.HEARTBEAT_ACK {
		t.Fatalf("expected HEARTBEAT_ACK, got %v", replyType)
	}
	if n.table.K() != 2 || n.table.NodeCount() != 2 {
		t.Fatalf("table not applied correctly: K=%d nodes=%d", n.table.K(), n.table.NodeCount())
	}
}
