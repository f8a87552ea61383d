package manager

import (
	"go.uber.org/zap"

	"github.com/dreamware/gtstore/pkg/ring"
	"github.com/dreamware/gtstore/pkg/wire"
)

// move is one key that needs to be copied from originator to dest.
type move struct {
	key        string
	originator string
	dest       string
}

// del is one key that needs to be removed from a displaced node.
type del struct {
	key  string
	node string
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// joinRebalance implements spec.md §4.3.2. newNodeID has already been
// registered into m.table by the time this runs; oldRing is the routing
// table as it stood immediately before that registration.
func (m *Manager) joinRebalance(newNodeID string, oldRing *ring.Table) {
	newRing := m.table
	tokens := newRing.VNodeTokens(newNodeID)
	exclude := map[string]bool{newNodeID: true}

	successors := map[string]bool{}
	for _, tok := range tokens {
		if succ, ok := newRing.SuccessorPhysical(tok, exclude); ok {
			successors[succ] = true
		}
	}
	if len(successors) == 0 {
		// Only node on the ring: nothing to migrate from.
		return
	}

	keysUnion := map[string]bool{}
	for succID := range successors {
		addr, ok := newRing.Addr(succID)
		if !ok {
			continue
		}
		keys, err := m.fetchAllKeys(addr)
		if err != nil {
			m.logger.Warn("join rebalance: GET_ALL_KEYS failed", zap.String("node_id", succID), zap.Error(err))
			continue
		}
		for _, k := range keys {
			keysUnion[k] = true
		}
	}

	k := int(newRing.K())
	participants := map[string]bool{newNodeID: true}
	for succID := range successors {
		participants[succID] = true
	}

	var moves []move
	var dels []del
	for key := range keysUnion {
		newList := newRing.PreferenceList(key)
		if !contains(newList, newNodeID) {
			continue
		}
		oldList := oldRing.PreferenceList(key)

		originator := newList[0]
		if originator == newNodeID {
			if len(newList) < 2 {
				continue
			}
			originator = newList[1]
		}
		moves = append(moves, move{key: key, originator: originator, dest: newNodeID})
		participants[originator] = true

		// N only ever displaces an existing replica when the old
		// preference list was already at full width K — otherwise N's
		// arrival just grows the list rather than evicting anyone
		// (spec.md §4.3.2 step 3: "the node that was at position K
		// before the join"). The displaced node is whichever old-list
		// member the new list no longer names.
		if len(oldList) == k {
			for _, id := range oldList {
				if !contains(newList, id) {
					dels = append(dels, del{key: key, node: id})
					participants[id] = true
					break
				}
			}
		}
	}

	if len(moves) == 0 && len(dels) == 0 {
		return
	}

	nodeIDs := make([]string, 0, len(participants))
	for id := range participants {
		nodeIDs = append(nodeIDs, id)
	}

	m.pauseNodes(newRing, nodeIDs, m.availAttempts, m.availInterval)
	m.executeMoves(newRing, moves)
	m.executeDeletes(newRing, dels)
	m.resumeNodes(newRing, nodeIDs)

	if m.metrics != nil {
		m.metrics.RebalanceBatchesTotal.Inc()
		m.metrics.RebalanceKeysMoved.Add(float64(len(moves)))
	}
}

// failureRebalance implements spec.md §4.3.3. ringBefore is the routing
// table as it stood before the failed nodes are removed; m.table still
// contains the failed nodes' entries at the time this runs (they are
// removed by the caller only after all moves complete).
func (m *Manager) failureRebalance(ringBefore *ring.Table, failedIDs []string) {
	failedSet := make(map[string]bool, len(failedIDs))
	for _, id := range failedIDs {
		failedSet[id] = true
	}

	neighbors := map[string]bool{}
	for _, failedID := range failedIDs {
		for _, tok := range ringBefore.VNodeTokens(failedID) {
			if succ, ok := ringBefore.SuccessorPhysical(tok, failedSet); ok {
				neighbors[succ] = true
			}
			if pred, ok := ringBefore.PredecessorPhysical(tok, failedSet); ok {
				neighbors[pred] = true
			}
		}
	}
	if len(neighbors) == 0 {
		return
	}

	keysUnion := map[string]bool{}
	for id := range neighbors {
		addr, ok := ringBefore.Addr(id)
		if !ok {
			continue
		}
		keys, err := m.fetchAllKeys(addr)
		if err != nil {
			m.logger.Warn("failure rebalance: GET_ALL_KEYS failed", zap.String("node_id", id), zap.Error(err))
			continue
		}
		for _, k := range keys {
			keysUnion[k] = true
		}
	}

	ringAfter := ringBefore.Snapshot()
	for _, id := range failedIDs {
		ringAfter.Remove(id)
	}

	participants := map[string]bool{}
	var moves []move
	for key := range keysUnion {
		oldList := ringBefore.PreferenceList(key)
		if !anyFailed(oldList, failedSet) {
			continue
		}

		originator := ""
		for _, id := range oldList {
			if !failedSet[id] {
				originator = id
				break
			}
		}
		if originator == "" {
			m.logger.Warn("failure rebalance: all replicas for key lost", zap.String("key", key))
			continue
		}

		newList := ringAfter.PreferenceList(key)
		if len(newList) == 0 {
			continue
		}
		dest := newList[len(newList)-1]
		if dest == originator {
			continue
		}

		moves = append(moves, move{key: key, originator: originator, dest: dest})
		participants[originator] = true
		participants[dest] = true
	}

	if len(moves) == 0 {
		return
	}

	nodeIDs := make([]string, 0, len(participants))
	for id := range participants {
		nodeIDs = append(nodeIDs, id)
	}

	// Use ringBefore for dial addresses: the surviving participants' rows
	// are identical in ringBefore and the live table, and ringBefore is
	// guaranteed not to need any failed-node lookups for this node set.
	m.pauseNodes(ringBefore, nodeIDs, m.availAttempts, m.availInterval)
	m.executeMoves(ringBefore, moves)
	m.resumeNodes(ringBefore, nodeIDs)

	if m.metrics != nil {
		m.metrics.RebalanceBatchesTotal.Inc()
		m.metrics.RebalanceKeysMoved.Add(float64(len(moves)))
	}
}

func anyFailed(list []string, failedSet map[string]bool) bool {
	for _, id := range list {
		if failedSet[id] {
			return true
		}
	}
	return false
}

// executeMoves batches moves per (originator, dest) pair: one MANAGER_GET
// to fetch the batch, one REPL_PUT to place it (spec.md §4.3.2: "Transfers
// are batched per (source, dest) pair").
func (m *Manager) executeMoves(table *ring.Table, moves []move) {
	type pair struct{ from, to string }
	groups := map[pair][]string{}
	for _, mv := range moves {
		p := pair{mv.originator, mv.dest}
		groups[p] = append(groups[p], mv.key)
	}

	for p, keys := range groups {
		fromAddr, ok := table.Addr(p.from)
		if !ok {
			continue
		}
		toAddr, ok := table.Addr(p.to)
		if !ok {
			continue
		}
		values, err := m.managerGet(fromAddr, keys)
		if err != nil || len(values) != len(keys) {
			m.logger.Warn("rebalance move: MANAGER_GET failed", zap.String("from", p.from), zap.Error(err))
			continue
		}
		pairs := make([]wire.KV, len(keys))
		for i, k := range keys {
			pairs[i] = wire.KV{Key: k, Value: values[i]}
		}
		if err := m.replPut(toAddr, pairs); err != nil {
			m.logger.Warn("rebalance move: REPL_PUT failed", zap.String("to", p.to), zap.Error(err))
		}
	}
}

// executeDeletes batches deletes per displaced node (spec.md §4.3.2: "and
// per source for deletes").
func (m *Manager) executeDeletes(table *ring.Table, dels []del) {
	groups := map[string][]string{}
	for _, d := range dels {
		groups[d.node] = append(groups[d.node], d.key)
	}
	for nodeID, keys := range groups {
		addr, ok := table.Addr(nodeID)
		if !ok {
			continue
		}
		if err := m.managerDelete(addr, keys); err != nil {
			m.logger.Warn("rebalance delete failed", zap.String("node_id", nodeID), zap.Error(err))
		}
	}
}
