// Package manager implements gtstore's manager role: it owns the
// authoritative routing table, detects storage-node failure by heartbeat
// timeout, and orchestrates rebalancing (key migration) across joins and
// failures (spec.md §4.3).
//
// Grounded on tripab-toy-dynamo/pkg/dynamo/node.go for the background-loop
// shape (a dedicated monitor goroutine alongside the accept loop) and on
// pkg/rpc/server.go for the one-goroutine-per-connection dispatch this
// package plugs into via pkg/wire.Server.
package manager

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/gtstore/pkg/config"
	"github.com/dreamware/gtstore/pkg/gtstoreerr"
	"github.com/dreamware/gtstore/pkg/ring"
	"github.com/dreamware/gtstore/pkg/telemetry"
	"github.com/dreamware/gtstore/pkg/wire"
	"go.uber.org/zap"
)

// Manager is the cluster's single routing authority. table and heartbeats
// are each guarded independently (spec.md §5); the failure monitor holds
// the heartbeats lock only long enough to snapshot expirations before
// calling into rebalance. rebalanceMu is held across the full duration of
// joinRebalance/failureRebalance so that the two rebalance routines never
// run concurrently: two registrations close together, or a join racing a
// failure, do not compute overlapping pause/resume sets. Table.Register in
// handleRegister and the Table.Remove of expired nodes in checkExpired do
// not take rebalanceMu, so they can change the live table while a
// rebalance is running.
type Manager struct {
	table *ring.Table

	rebalanceMu sync.Mutex

	hbMu       sync.Mutex
	heartbeats map[string]time.Time

	vnodesPerNode int
	dialTimeout   time.Duration
	availAttempts int
	availInterval time.Duration

	logger  *zap.Logger
	metrics *telemetry.Metrics

	quit   chan struct{}
	wg     sync.WaitGroup
	server *wire.Server
}

// New builds a manager with an empty routing table of replication factor
// cfg.Replication.
func New(cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics) *Manager {
	return &Manager{
		table:         ring.NewTable(uint32(cfg.Replication)),
		heartbeats:    make(map[string]time.Time),
		vnodesPerNode: cfg.VirtualNodes,
		dialTimeout:   2 * time.Second,
		availAttempts: cfg.AvailabilityWaitAttempts,
		availInterval: cfg.AvailabilityWaitInterval,
		logger:        logger,
		metrics:       metrics,
		quit:          make(chan struct{}),
	}
}

// Handle dispatches one inbound message per spec.md §4.3's table.
func (m *Manager) Handle(msg wire.Message) (wire.Type, []byte) {
	switch msg.Type {
	case wire.STORAGE_REGISTER:
		return m.handleRegister(msg)
	case wire.CLIENT_HELLO:
		return wire.TABLE_PUSH, []byte(m.tablePushPayload())
	case wire.HEARTBEAT:
		return m.handleHeartbeat(msg)
	default:
		m.logger.Warn("manager: unknown message type", zap.Uint16("type", uint16(msg.Type)))
		return 0, nil
	}
}

func (m *Manager) handleRegister(msg wire.Message) (wire.Type, []byte) {
	nodeID, addr, err := parseRegisterPayload(string(msg.Payload))
	if err != nil {
		return wire.ERROR, []byte(err.Error())
	}

	oldRing := m.table.Snapshot()
	m.table.Register(nodeID, addr, m.vnodesPerNode)
	m.stampHeartbeat(nodeID)
	reply := m.tablePushPayload()

	m.logger.Info("storage node registered", zap.String("node_id", nodeID),
		zap.String("host", addr.Host), zap.Uint16("port", addr.Port))

	// Rebalance and broadcast run on their own goroutine, so the
	// TABLE_PUSH reply is returned without waiting for them. That goroutine
	// starts before the reply is sent and is not ordered after it.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.rebalanceMu.Lock()
		defer m.rebalanceMu.Unlock()
		m.joinRebalance(nodeID, oldRing)
		m.broadcastTable()
	}()

	return wire.TABLE_PUSH, []byte(reply)
}

func (m *Manager) handleHeartbeat(msg wire.Message) (wire.Type, []byte) {
	nodeID := string(msg.Payload)
	m.stampHeartbeat(nodeID)
	return wire.HEARTBEAT_ACK, nil
}

func (m *Manager) stampHeartbeat(nodeID string) {
	m.hbMu.Lock()
	m.heartbeats[nodeID] = time.Now()
	m.hbMu.Unlock()
}

func (m *Manager) tablePushPayload() string {
	return wire.EncodeTablePayload(m.table.K(), toWireRows(m.table.Rows()))
}

func toWireRows(rows []ring.Row) []wire.TableRow {
	out := make([]wire.TableRow, len(rows))
	for i, r := range rows {
		out[i] = wire.TableRow{NodeID: r.NodeID, Host: r.Host, Port: r.Port, Token: r.Token}
	}
	return out
}

func parseRegisterPayload(payload string) (string, ring.Address, error) {
	fields := strings.Split(payload, ",")
	if len(fields) != 3 {
		return "", ring.Address{}, gtstoreerr.New(gtstoreerr.BadFormat, fmt.Sprintf("malformed STORAGE_REGISTER payload %q", payload))
	}
	port, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return "", ring.Address{}, gtstoreerr.Wrap(gtstoreerr.BadFormat, "bad port in STORAGE_REGISTER", err)
	}
	return fields[0], ring.Address{Host: fields[1], Port: uint16(port)}, nil
}

// ListenAndServe binds addr and serves manager traffic until Close.
func (m *Manager) ListenAndServe(addr string) error {
	srv, err := wire.Listen(addr, m.Handle, m.logger)
	if err != nil {
		return err
	}
	m.server = srv
	m.logger.Info("manager listening", zap.String("addr", addr))
	return srv.Serve()
}

// StartFailureMonitor launches the heartbeat-expiry scan at interval
// cadence, treating any physical node unseen for longer than timeout as
// failed (spec.md §4.3.1).
func (m *Manager) StartFailureMonitor(interval, timeout time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.checkExpired(timeout)
			case <-m.quit:
				return
			}
		}
	}()
}

func (m *Manager) checkExpired(timeout time.Duration) {
	now := time.Now()
	var expired []string

	m.hbMu.Lock()
	for _, id := range m.table.NodeIDs() {
		last, ok := m.heartbeats[id]
		if !ok || now.Sub(last) > timeout {
			expired = append(expired, id)
		}
	}
	m.hbMu.Unlock()

	if len(expired) == 0 {
		return
	}
	m.logger.Warn("storage nodes expired", zap.Strings("node_ids", expired))
	if m.metrics != nil {
		m.metrics.HeartbeatMissesTotal.Add(float64(len(expired)))
	}

	ringBefore := m.table.Snapshot()
	m.rebalanceMu.Lock()
	m.failureRebalance(ringBefore, expired)
	m.rebalanceMu.Unlock()

	for _, id := range expired {
		m.table.Remove(id)
		m.hbMu.Lock()
		delete(m.heartbeats, id)
		m.hbMu.Unlock()
	}
	m.broadcastTable()
}

// broadcastTable pushes the current table to every registered physical
// node (spec.md §4.3.4). Failures are logged only, never retried here.
func (m *Manager) broadcastTable() {
	payload := []byte(m.tablePushPayload())
	for _, nodeID := range m.table.NodeIDs() {
		addr, ok := m.table.Addr(nodeID)
		if !ok {
			continue
		}
		dial := fmt.Sprintf("%s:%d", addr.Host, addr.Port)
		reply, err := wire.Roundtrip(dial, m.dialTimeout, wire.TABLE_PUSH, payload)
		if err != nil || reply.Type != wire.HEARTBEAT_ACK {
			m.logger.Warn("table push failed", zap.String("node_id", nodeID), zap.Error(err))
		}
	}
	if m.metrics != nil {
		m.metrics.TablePushesTotal.Inc()
		m.metrics.ClusterNodesAlive.Set(float64(m.table.NodeCount()))
	}
}

// Close stops the failure monitor and the listener.
func (m *Manager) Close() error {
	close(m.quit)
	m.wg.Wait()
	if m.server != nil {
		return m.server.Close()
	}
	return nil
}
