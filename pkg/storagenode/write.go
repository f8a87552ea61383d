package storagenode

import (
	"fmt"

	"github.com/dreamware/gtstore/pkg/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handlePrimaryPut implements the CLIENT_PUT write path (spec.md §4.4.1):
// try-acquire a lock per key, write locally, fan out REPL_PUT to the
// other K-1 replicas, release locks, and reply PUT_OK regardless of
// replica fanout outcome (the "local success suffices" durability policy
// spec.md §9(a) documents; StrictReplicationAck flips this).
func (n *Node) handlePrimaryPut(msg wire.Message) (wire.Type, []byte) {
	pairs, err := wire.DecodePutPayload(string(msg.Payload))
	if err != nil {
		return wire.ERROR, []byte(err.Error())
	}
	for _, kv := range pairs {
		if err := validateKV(kv.Key, kv.Value); err != nil {
			return wire.ERROR, []byte(err.Error())
		}
	}

	type held struct {
		key   string
		token uuid.UUID
	}
	tokens := make([]held, 0, len(pairs))
	for _, kv := range pairs {
		token, ok := n.locks.TryAcquire(kv.Key)
		if !ok {
			for _, t := range tokens {
				n.locks.Release(t.key, t.token)
			}
			if n.metrics != nil {
				n.metrics.LockContentionTotal.Inc()
			}
			return wire.ERROR, []byte("locked")
		}
		tokens = append(tokens, held{kv.Key, token})
	}
	defer func() {
		for _, t := range tokens {
			n.locks.Release(t.key, t.token)
		}
	}()

	for _, kv := range pairs {
		n.data.Put(kv.Key, wire.SplitValueList(kv.Value))
	}

	allAcked := n.fanoutReplicate(pairs)

	if n.strictReplicationAck && !allAcked {
		return wire.ERROR, []byte("replication failed")
	}

	if n.metrics != nil {
		n.metrics.PutsTotal.Inc()
	}
	return wire.PUT_OK, nil
}

// fanoutReplicate sends REPL_PUT to every replica in the preference list
// besides self, among the ring's first K positions for the batch's key
// (spec.md §4.4.1 step 4: all keys in one CLIENT_PUT batch share a
// preference list by precondition).
func (n *Node) fanoutReplicate(pairs []wire.KV) bool {
	if len(pairs) == 0 {
		return true
	}
	n.tableMu.RLock()
	table := n.table
	n.tableMu.RUnlock()

	prefList := table.PreferenceList(pairs[0].Key)
	payload := []byte(wire.EncodePutPayload(pairs))

	allAcked := true
	for _, nodeID := range prefList {
		if nodeID == n.ID {
			continue
		}
		addr, ok := table.Addr(nodeID)
		if !ok {
			continue
		}
		if n.metrics != nil {
			n.metrics.ReplicationFanoutTotal.Inc()
		}
		dial := fmt.Sprintf("%s:%d", addr.Host, addr.Port)
		reply, err := wire.Roundtrip(dial, n.dialTimeout, wire.REPL_PUT, payload)
		if err != nil || reply.Type != wire.PUT_OK {
			n.logger.Warn("replica put failed", zap.String("replica", nodeID), zap.Error(err))
			if n.metrics != nil {
				n.metrics.ReplicationFailedTotal.Inc()
			}
			allAcked = false
		}
	}
	return allAcked
}

// handleReplicaPut implements the REPL_PUT path (spec.md §4.4.2): no
// locks, no further fanout.
func (n *Node) handleReplicaPut(msg wire.Message) (wire.Type, []byte) {
	pairs, err := wire.DecodePutPayload(string(msg.Payload))
	if err != nil {
		return wire.ERROR, []byte(err.Error())
	}
	for _, kv := range pairs {
		if err := validateKV(kv.Key, kv.Value); err != nil {
			return wire.ERROR, []byte(err.Error())
		}
	}
	for _, kv := range pairs {
		n.data.Put(kv.Key, wire.SplitValueList(kv.Value))
	}
	return wire.PUT_OK, nil
}
