package storagenode

import (
	"fmt"

	"github.com/dreamware/gtstore/pkg/wire"
	"go.uber.org/zap"
)

const (
	maxKeyBytes   = 20
	maxValueBytes = 1000
)

// Handle dispatches one decoded inbound message to the appropriate
// request handler, matching the per-message-type table in spec.md §4.4.
func (n *Node) Handle(msg wire.Message) (wire.Type, []byte) {
	switch msg.Type {
	case wire.CLIENT_GET:
		return n.guardedPaused(msg, n.handleClientGet)
	case wire.CLIENT_PUT:
		return n.guardedPaused(msg, n.handlePrimaryPut)
	case wire.REPL_PUT:
		return n.handleReplicaPut(msg)
	case wire.CLIENT_DELETE:
		return n.guardedPaused(msg, n.handleClientDelete)
	case wire.MANAGER_GET:
		return n.handleManagerGet(msg)
	case wire.MANAGER_DELETE:
		return n.handleManagerDelete(msg)
	case wire.GET_ALL_KEYS:
		return n.handleGetAllKeys(msg)
	case wire.PAUSE_NODE:
		return n.handlePause(msg)
	case wire.RESUME_NODE:
		return n.handleResume(msg)
	case wire.AVAILABILITY_CHECK:
		return n.handleAvailabilityCheck(msg)
	case wire.TABLE_PUSH:
		return n.handleTablePush(msg)
	default:
		n.logger.Warn("unknown message type", zap.Uint16("type", uint16(msg.Type)))
		return wire.ERROR, []byte("unknown type")
	}
}

// guardedPaused refuses client-facing operations with NODE_PAUSED while
// the node is paused (spec.md §4.4: "reject if paused").
func (n *Node) guardedPaused(msg wire.Message, fn func(wire.Message) (wire.Type, []byte)) (wire.Type, []byte) {
	if n.isPaused() {
		if n.metrics != nil {
			n.metrics.ErrorsTotal.WithLabelValues("NODE_PAUSED").Inc()
		}
		return wire.ERROR, []byte("node is paused")
	}
	return fn(msg)
}

func (n *Node) handleClientGet(msg wire.Message) (wire.Type, []byte) {
	key := string(msg.Payload)
	values, ok := n.data.Get(key)
	if n.metrics != nil {
		n.metrics.GetsTotal.Inc()
	}
	if !ok {
		if n.metrics != nil {
			n.metrics.ErrorsTotal.WithLabelValues("MISSING").Inc()
		}
		return wire.ERROR, []byte("missing")
	}
	return wire.GET_OK, []byte(wire.JoinValueList(values))
}

func (n *Node) handleClientDelete(msg wire.Message) (wire.Type, []byte) {
	keys := wire.DecodeKeysPayload(string(msg.Payload))
	for _, k := range keys {
		n.data.Delete(k)
	}
	if n.metrics != nil {
		n.metrics.DeletesTotal.Inc()
	}
	return wire.DELETE_OK, nil
}

func (n *Node) handleManagerGet(msg wire.Message) (wire.Type, []byte) {
	keys := wire.DecodeKeysPayload(string(msg.Payload))
	values := make([]string, len(keys))
	for i, k := range keys {
		vals, ok := n.data.Get(k)
		if !ok {
			if n.metrics != nil {
				n.metrics.ErrorsTotal.WithLabelValues("MISSING").Inc()
			}
			return wire.ERROR, []byte(fmt.Sprintf("missing key %q", k))
		}
		values[i] = wire.JoinValueList(vals)
	}
	return wire.GET_OK, []byte(wire.EncodeManagerGetReply(values))
}

func (n *Node) handleManagerDelete(msg wire.Message) (wire.Type, []byte) {
	keys := wire.DecodeKeysPayload(string(msg.Payload))
	for _, k := range keys {
		n.data.Delete(k)
	}
	return wire.DELETE_OK, nil
}

func (n *Node) handleGetAllKeys(wire.Message) (wire.Type, []byte) {
	keys := n.data.Keys()
	return wire.ALL_KEYS, []byte(wire.EncodeAllKeysPayload(keys))
}

func (n *Node) handlePause(wire.Message) (wire.Type, []byte) {
	n.setPaused(true)
	return wire.PAUSE_ACK, nil
}

func (n *Node) handleResume(wire.Message) (wire.Type, []byte) {
	n.setPaused(false)
	return wire.RESUME_ACK, nil
}

func (n *Node) handleAvailabilityCheck(wire.Message) (wire.Type, []byte) {
	if n.locks.Empty() {
		return wire.AVAILABLE_STATUS, []byte("yes")
	}
	return wire.AVAILABLE_STATUS, []byte("no")
}

func (n *Node) handleTablePush(msg wire.Message) (wire.Type, []byte) {
	if err := n.applyTablePush(msg); err != nil {
		n.logger.Warn("failed to apply table push", zap.Error(err))
		return wire.ERROR, []byte(err.Error())
	}
	return wire.HEARTBEAT_ACK, nil
}

func validateKV(key, value string) error {
	if len(key) == 0 || len(key) > maxKeyBytes {
		return fmt.Errorf("key length %d out of bounds [1,%d]", len(key), maxKeyBytes)
	}
	if len(value) > maxValueBytes {
		return fmt.Errorf("value length %d exceeds %d", len(value), maxValueBytes)
	}
	return nil
}
