// Package ring implements gtstore's consistent-hash routing table: a
// sorted ring of virtual nodes and the deterministic preference-list walk
// that both the manager and every client/storage node use to find the K
// nodes responsible for a key (spec.md §4.1).
//
// Grounded on tripab-toy-dynamo/pkg/ring/consistent_hash.go, with the
// teacher's crypto/md5 position hash replaced by the fixed gthash.Sum64
// function (spec.md §9: hash agreement across processes is load-bearing,
// and a per-process-seeded hash cannot provide it).
package ring

import (
	"sort"
	"sync"

	"github.com/dreamware/gtstore/pkg/gthash"
)

// Table is a routing table: the sorted set of virtual nodes currently on
// the ring, plus the replication factor K used to build preference lists.
// The manager owns the authoritative Table; clients and storage nodes
// hold a cached copy refreshed by TABLE_PUSH / CLIENT_HELLO.
type Table struct {
	mu       sync.RWMutex
	vnodes   []VirtualNode // sorted by (Token, PhysicalNodeID)
	physical map[string]Address
	k        uint32
}

// NewTable creates an empty routing table with replication factor k.
func NewTable(k uint32) *Table {
	return &Table{physical: make(map[string]Address), k: k}
}

// K returns the table's replication factor.
func (t *Table) K() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.k
}

// Register (re-)adds a physical node to the ring with vnodesPerNode
// virtual nodes. Re-registering an id already present wholesale-replaces
// its prior virtual nodes, rather than merging — a node never partially
// rejoins (spec.md §4.3.2).
func (t *Table) Register(nodeID string, addr Address, vnodesPerNode int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(nodeID)
	t.physical[nodeID] = addr
	for i := 0; i < vnodesPerNode; i++ {
		t.vnodes = append(t.vnodes, VirtualNode{
			PhysicalNodeID: nodeID,
			Addr:           addr,
			Token:          gthash.VirtualNodeToken(nodeID, i),
		})
	}
	t.sortLocked()
}

// Remove drops a physical node and all of its virtual nodes from the ring.
func (t *Table) Remove(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(nodeID)
}

func (t *Table) removeLocked(nodeID string) {
	if _, ok := t.physical[nodeID]; !ok {
		return
	}
	delete(t.physical, nodeID)
	kept := t.vnodes[:0]
	for _, v := range t.vnodes {
		if v.PhysicalNodeID != nodeID {
			kept = append(kept, v)
		}
	}
	t.vnodes = kept
}

func (t *Table) sortLocked() {
	sort.Slice(t.vnodes, func(i, j int) bool {
		if t.vnodes[i].Token != t.vnodes[j].Token {
			return t.vnodes[i].Token < t.vnodes[j].Token
		}
		// Deterministic tie-break: lexicographic on physical_node_id
		// (spec.md §4.1) so every process walks a colliding token in
		// the same order.
		return t.vnodes[i].PhysicalNodeID < t.vnodes[j].PhysicalNodeID
	})
}

// PreferenceList returns up to K distinct physical node ids responsible
// for key, walking the ring clockwise from the first virtual node whose
// token is >= hash(key) and wrapping back to index 0 when the walk runs
// off the end (spec.md §4.1). Returns fewer than K entries only when
// fewer than K distinct physical nodes are registered.
func (t *Table) PreferenceList(key string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.preferenceListLocked(key)
}

func (t *Table) preferenceListLocked(key string) []string {
	if len(t.vnodes) == 0 {
		return nil
	}
	target := gthash.Sum64(key)
	start := sort.Search(len(t.vnodes), func(i int) bool {
		return t.vnodes[i].Token >= target
	})
	if start == len(t.vnodes) {
		start = 0
	}

	want := int(t.k)
	if len(t.physical) < want {
		want = len(t.physical)
	}

	seen := make(map[string]bool, want)
	list := make([]string, 0, want)
	for i := 0; len(list) < want; i++ {
		idx := (start + i) % len(t.vnodes)
		id := t.vnodes[idx].PhysicalNodeID
		if !seen[id] {
			seen[id] = true
			list = append(list, id)
		}
		if i >= len(t.vnodes) {
			// Defensive: fewer distinct physical nodes than virtual
			// nodes walked should never require more than one full
			// loop, but don't spin forever if bookkeeping ever drifts.
			break
		}
	}
	return list
}

// Coordinator returns the first (primary) node in key's preference list,
// or "" if the ring is empty.
func (t *Table) Coordinator(key string) string {
	list := t.PreferenceList(key)
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// Addr returns the dial address registered for a physical node id.
func (t *Table) Addr(nodeID string) (Address, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.physical[nodeID]
	return a, ok
}

// NodeCount reports the number of distinct physical nodes on the ring.
func (t *Table) NodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.physical)
}

// NodeIDs returns the physical node ids currently on the ring, sorted for
// deterministic iteration (e.g. rebalance ordering).
func (t *Table) NodeIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.physical))
	for id := range t.physical {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns an independent copy of the table, for the manager to
// retain as "ring_before" while a rebalance against the live table proceeds
// (spec.md §4.3.3: failure rebalance computes preference lists against the
// pre-removal ring).
func (t *Table) Snapshot() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := &Table{
		k:        t.k,
		physical: make(map[string]Address, len(t.physical)),
		vnodes:   make([]VirtualNode, len(t.vnodes)),
	}
	copy(cp.vnodes, t.vnodes)
	for id, addr := range t.physical {
		cp.physical[id] = addr
	}
	return cp
}

// VNodeTokens returns the tokens a physical node owns, in ring order.
func (t *Table) VNodeTokens(nodeID string) []uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var tokens []uint64
	for _, v := range t.vnodes {
		if v.PhysicalNodeID == nodeID {
			tokens = append(tokens, v.Token)
		}
	}
	return tokens
}

// SuccessorPhysical returns the first physical node, walking clockwise from
// token, whose id is not in exclude (spec.md §4.3.2: "its successor
// physical is the next virtual node on the ring whose physical ID != N").
func (t *Table) SuccessorPhysical(token uint64, exclude map[string]bool) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.vnodes) == 0 {
		return "", false
	}
	start := sort.Search(len(t.vnodes), func(i int) bool {
		return t.vnodes[i].Token >= token
	})
	for i := 0; i < len(t.vnodes); i++ {
		idx := (start + i) % len(t.vnodes)
		id := t.vnodes[idx].PhysicalNodeID
		if !exclude[id] {
			return id, true
		}
	}
	return "", false
}

// PredecessorPhysical returns the first physical node, walking
// counter-clockwise from token, whose id is not in exclude (spec.md
// §4.3.3: "immediate predecessor ... physicals distinct from the failed
// node").
func (t *Table) PredecessorPhysical(token uint64, exclude map[string]bool) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.vnodes) == 0 {
		return "", false
	}
	start := sort.Search(len(t.vnodes), func(i int) bool {
		return t.vnodes[i].Token >= token
	}) - 1
	if start < 0 {
		start = len(t.vnodes) - 1
	}
	for i := 0; i < len(t.vnodes); i++ {
		idx := start - i
		if idx < 0 {
			idx += len(t.vnodes)
		}
		id := t.vnodes[idx].PhysicalNodeID
		if !exclude[id] {
			return id, true
		}
	}
	return "", false
}

// Rows snapshots the full ring as wire-ready rows, for TABLE_PUSH.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := make([]Row, len(t.vnodes))
	for i, v := range t.vnodes {
		rows[i] = vnodeToRow(v)
	}
	return rows
}

// LoadRows replaces the table's contents wholesale from a decoded
// TABLE_PUSH payload — the operation a client or storage node performs
// on receiving a fresh table from the manager.
func (t *Table) LoadRows(k uint32, rows []Row) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.k = k
	t.vnodes = make([]VirtualNode, len(rows))
	t.physical = make(map[string]Address)
	for i, r := range rows {
		v := rowToVnode(r)
		t.vnodes[i] = v
		t.physical[v.PhysicalNodeID] = v.Addr
	}
	t.sortLocked()
}
