package manager

import (
	"fmt"
	"time"

	"github.com/dreamware/gtstore/pkg/ring"
	"github.com/dreamware/gtstore/pkg/wire"
	"go.uber.org/zap"
)

func dialAddr(addr ring.Address) string {
	return fmt.Sprintf("%s:%d", addr.Host, addr.Port)
}

// fetchAllKeys asks a physical node for every key it currently holds
// (spec.md §4.3.2/§4.3.3: "request GET_ALL_KEYS from S").
func (m *Manager) fetchAllKeys(addr ring.Address) ([]string, error) {
	reply, err := wire.Roundtrip(dialAddr(addr), m.dialTimeout, wire.GET_ALL_KEYS, nil)
	if err != nil {
		return nil, err
	}
	if reply.Type != wire.ALL_KEYS {
		return nil, fmt.Errorf("unexpected reply type %v to GET_ALL_KEYS", reply.Type)
	}
	return wire.DecodeAllKeysPayload(string(reply.Payload)), nil
}

// managerGet reads a batch of keys from a node via MANAGER_GET, which is
// allowed while the node is paused.
func (m *Manager) managerGet(addr ring.Address, keys []string) ([]string, error) {
	payload := []byte(wire.EncodeKeysPayload(keys))
	reply, err := wire.Roundtrip(dialAddr(addr), m.dialTimeout, wire.MANAGER_GET, payload)
	if err != nil {
		return nil, err
	}
	if reply.Type != wire.GET_OK {
		return nil, fmt.Errorf("unexpected reply type %v to MANAGER_GET", reply.Type)
	}
	return wire.DecodeManagerGetReply(string(reply.Payload)), nil
}

// replPut writes a batch of (key, value) pairs to a node via REPL_PUT.
func (m *Manager) replPut(addr ring.Address, pairs []wire.KV) error {
	payload := []byte(wire.EncodePutPayload(pairs))
	reply, err := wire.Roundtrip(dialAddr(addr), m.dialTimeout, wire.REPL_PUT, payload)
	if err != nil {
		return err
	}
	if reply.Type != wire.PUT_OK {
		return fmt.Errorf("unexpected reply type %v to REPL_PUT", reply.Type)
	}
	return nil
}

// managerDelete removes a batch of keys from a node via MANAGER_DELETE.
func (m *Manager) managerDelete(addr ring.Address, keys []string) error {
	payload := []byte(wire.EncodeKeysPayload(keys))
	reply, err := wire.Roundtrip(dialAddr(addr), m.dialTimeout, wire.MANAGER_DELETE, payload)
	if err != nil {
		return err
	}
	if reply.Type != wire.DELETE_OK {
		return fmt.Errorf("unexpected reply type %v to MANAGER_DELETE", reply.Type)
	}
	return nil
}

// pauseNodes sends PAUSE_NODE to every listed node id and waits for each to
// report AVAILABLE before returning, so the caller can safely move keys
// (spec.md §4.3.2: "Before doing any transfers, the manager pauses every
// affected node ... and waits for each to report AVAILABLE").
func (m *Manager) pauseNodes(table *ring.Table, nodeIDs []string, attempts int, interval time.Duration) {
	for _, id := range nodeIDs {
		addr, ok := table.Addr(id)
		if !ok {
			continue
		}
		if _, err := wire.Roundtrip(dialAddr(addr), m.dialTimeout, wire.PAUSE_NODE, nil); err != nil {
			m.logger.Warn("pause failed", zap.String("node_id", id), zap.Error(err))
			continue
		}
		m.waitAvailable(addr, id, attempts, interval)
	}
}

func (m *Manager) waitAvailable(addr ring.Address, nodeID string, attempts int, interval time.Duration) {
	for i := 0; i < attempts; i++ {
		reply, err := wire.Roundtrip(dialAddr(addr), m.dialTimeout, wire.AVAILABILITY_CHECK, nil)
		if err == nil && reply.Type == wire.AVAILABLE_STATUS && string(reply.Payload) == "yes" {
			return
		}
		time.Sleep(interval)
	}
	// Availability-wait exhausted: spec.md §5 commits to proceeding anyway,
	// preferring ring availability over perfect quiescence.
	m.logger.Warn("availability wait exhausted, proceeding", zap.String("node_id", nodeID))
}

// resumeNodes sends RESUME_NODE to every listed node id, in any order
// (spec.md §4.3.2: "After all moves and deletes, it resumes them in any
// order").
func (m *Manager) resumeNodes(table *ring.Table, nodeIDs []string) {
	for _, id := range nodeIDs {
		addr, ok := table.Addr(id)
		if !ok {
			continue
		}
		if _, err := wire.Roundtrip(dialAddr(addr), m.dialTimeout, wire.RESUME_NODE, nil); err != nil {
			m.logger.Warn("resume failed", zap.String("node_id", id), zap.Error(err))
		}
	}
}
