// Package storagenode implements gtstore's storage role: an in-memory
// key/value map, a per-key lock table, the pause/availability protocol,
// and primary-initiated chain replication (spec.md §4.4).
//
// Grounded on tripab-toy-dynamo/pkg/dynamo/node.go for the overall
// node-with-background-loops shape (Start/Stop, heartbeat goroutine,
// mutex-guarded fields), adapted to gtstore's three-role split: this Node
// owns only storage-node state plus a cached copy of the routing table
// pushed by the manager; it never owns the authoritative ring.
package storagenode

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dreamware/gtstore/pkg/config"
	"github.com/dreamware/gtstore/pkg/gtstoreerr"
	"github.com/dreamware/gtstore/pkg/ring"
	"github.com/dreamware/gtstore/pkg/store"
	"github.com/dreamware/gtstore/pkg/telemetry"
	"github.com/dreamware/gtstore/pkg/wire"
	"go.uber.org/zap"
)

// Node is a single storage node's local state. Each of data, locks, and
// paused is guarded by its own lock, never taken together (spec.md §5).
type Node struct {
	ID   string
	Self ring.Address

	data  *store.Map
	locks *store.LockTable

	pauseMu sync.RWMutex
	paused  bool

	tableMu sync.RWMutex
	table   *ring.Table

	managerAddr string
	dialTimeout time.Duration

	// strictReplicationAck selects between gtstore's two put-durability
	// policies (spec.md §9(a)): false means the primary's local write
	// suffices for PUT_OK; true requires every replica in the preference
	// list to ack REPL_PUT first.
	strictReplicationAck bool

	logger  *zap.Logger
	metrics *telemetry.Metrics

	wg     sync.WaitGroup
	quit   chan struct{}
	server *wire.Server
}

// New builds a storage node. cfg.Replication seeds the routing table's K
// until the first TABLE_PUSH arrives from the manager.
func New(id string, self ring.Address, cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics) *Node {
	return &Node{
		ID:                    id,
		Self:                  self,
		data:                  store.New(),
		locks:                 store.NewLockTable(),
		table:                 ring.NewTable(uint32(cfg.Replication)),
		managerAddr:           cfg.ManagerAddr(),
		dialTimeout:           2 * time.Second,
		strictReplicationAck:  cfg.StrictReplicationAck,
		logger:                logger,
		metrics:               metrics,
		quit:                  make(chan struct{}),
	}
}

// Register performs this node's one-time STORAGE_REGISTER handshake with
// the manager, loading the TABLE_PUSH reply as the node's initial routing
// table (spec.md §4.3).
func (n *Node) Register() error {
	payload := fmt.Sprintf("%s,%s,%d", n.ID, n.Self.Host, n.Self.Port)
	reply, err := wire.Roundtrip(n.managerAddr, n.dialTimeout, wire.STORAGE_REGISTER, []byte(payload))
	if err != nil {
		return gtstoreerr.Wrap(gtstoreerr.Transport, "register with manager", err)
	}
	return n.applyTablePush(reply)
}

func (n *Node) applyTablePush(msg wire.Message) error {
	if msg.Type != wire.TABLE_PUSH {
		return gtstoreerr.New(gtstoreerr.BadFormat, "expected TABLE_PUSH from manager")
	}
	k, rows, err := wire.DecodeTablePayload(string(msg.Payload))
	if err != nil {
		return gtstoreerr.Wrap(gtstoreerr.BadFormat, "decode table payload", err)
	}
	ringRows := make([]ring.Row, len(rows))
	for i, r := range rows {
		ringRows[i] = ring.Row{NodeID: r.NodeID, Host: r.Host, Port: r.Port, Token: r.Token}
	}
	n.tableMu.Lock()
	n.table.LoadRows(k, ringRows)
	n.tableMu.Unlock()
	return nil
}

// ListenAndServe binds addr and serves client/manager/replica traffic
// until Close is called.
func (n *Node) ListenAndServe(addr string) error {
	if _, err := n.Bind(addr); err != nil {
		return err
	}
	return n.Serve()
}

// Bind binds addr without accepting connections yet, so a caller can
// register with the manager only after the listener is actually live
// (cmd/storage: registering before binding risks the manager pushing
// rebalance traffic to an address nothing is listening on).
func (n *Node) Bind(addr string) (net.Addr, error) {
	srv, err := wire.Listen(addr, n.Handle, n.logger)
	if err != nil {
		return nil, err
	}
	n.server = srv
	n.logger.Info("storage node listening", zap.String("node_id", n.ID), zap.String("addr", addr))
	return srv.Addr(), nil
}

// Serve accepts connections on a listener previously established by Bind,
// blocking until Close is called.
func (n *Node) Serve() error {
	return n.server.Serve()
}

// StartHeartbeat launches the background heartbeat-sender loop (spec.md
// §4.4: "every 2s: open, HEARTBEAT node_id, close").
func (n *Node) StartHeartbeat(interval time.Duration) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n.sendHeartbeat()
			case <-n.quit:
				return
			}
		}
	}()
}

func (n *Node) sendHeartbeat() {
	_, err := wire.Roundtrip(n.managerAddr, n.dialTimeout, wire.HEARTBEAT, []byte(n.ID))
	if err != nil {
		n.logger.Warn("heartbeat failed", zap.String("node_id", n.ID), zap.Error(err))
		return
	}
	if n.metrics != nil {
		n.metrics.HeartbeatsSentTotal.Inc()
	}
}

// Close stops the heartbeat loop and the listener. Calling it more than
// once does not panic.
func (n *Node) Close() error {
	select {
	case <-n.quit:
	default:
		close(n.quit)
	}
	n.wg.Wait()
	if n.server != nil {
		return n.server.Close()
	}
	return nil
}

func (n *Node) isPaused() bool {
	n.pauseMu.RLock()
	defer n.pauseMu.RUnlock()
	return n.paused
}

func (n *Node) setPaused(v bool) {
	n.pauseMu.Lock()
	n.paused = v
	n.pauseMu.Unlock()
	if n.metrics != nil {
		if v {
			n.metrics.NodePaused.Set(1)
		} else {
			n.metrics.NodePaused.Set(0)
		}
	}
}
