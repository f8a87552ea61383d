package ring

import (
	"fmt"
	"testing"
)

func addr(i int) Address {
	return Address{Host: "10.0.0.1", Port: uint16(6000 + i)}
}

func TestRegisterCreatesVirtualNodes(t *testing.T) {
	tbl := NewTable(3)
	tbl.Register("node-1", addr(1), 10)

	if tbl.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", tbl.NodeCount())
	}
	if got := len(tbl.Rows()); got != 10 {
		t.Fatalf("expected 10 virtual nodes, got %d", got)
	}
}

func TestPreferenceListUniqueAndBounded(t *testing.T) {
	tbl := NewTable(3)
	tbl.Register("node-1", addr(1), 16)
	tbl.Register("node-2", addr(2), 16)
	tbl.Register("node-3", addr(3), 16)

	list := tbl.PreferenceList("some-key")
	if len(list) != 3 {
		t.Fatalf("expected 3 nodes in preference list, got %d", len(list))
	}
	seen := make(map[string]bool)
	for _, id := range list {
		if seen[id] {
			t.Fatalf("duplicate node %q in preference list", id)
		}
		seen[id] = true
	}
}

func TestPreferenceListShrinksWithFewerNodes(t *testing.T) {
	tbl := NewTable(3)
	tbl.Register("node-1", addr(1), 16)

	list := tbl.PreferenceList("some-key")
	if len(list) != 1 {
		t.Fatalf("expected 1 node when only 1 registered, got %d", len(list))
	}
}

func TestPreferenceListDeterministic(t *testing.T) {
	tbl := NewTable(3)
	for i := 1; i <= 5; i++ {
		tbl.Register(fmt.Sprintf("node-%d", i), addr(i), 32)
	}

	first := tbl.PreferenceList("stable-key")
	for i := 0; i < 10; i++ {
		again := tbl.PreferenceList("stable-key")
		if fmt.Sprint(first) != fmt.Sprint(again) {
			t.Fatalf("preference list is not stable across calls: %v != %v", first, again)
		}
	}
}

func TestRemoveDropsNodeFromPreferenceLists(t *testing.T) {
	tbl := NewTable(3)
	tbl.Register("node-1", addr(1), 16)
	tbl.Register("node-2", addr(2), 16)

	if tbl.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", tbl.NodeCount())
	}

	tbl.Remove("node-1")
	if tbl.NodeCount() != 1 {
		t.Fatalf("expected 1 node after removal, got %d", tbl.NodeCount())
	}

	list := tbl.PreferenceList("any-key")
	for _, id := range list {
		if id == "node-1" {
			t.Fatalf("removed node still present in preference list: %v", list)
		}
	}
}

func TestRegisterReplacesPriorVirtualNodes(t *testing.T) {
	tbl := NewTable(3)
	tbl.Register("node-1", addr(1), 10)
	tbl.Register("node-1", addr(99), 4)

	if got := len(tbl.Rows()); got != 4 {
		t.Fatalf("re-registering should wholesale-replace virtual nodes, got %d rows", got)
	}
	a, ok := tbl.Addr("node-1")
	if !ok || a.Port != 6099 {
		t.Fatalf("expected updated address, got %+v ok=%v", a, ok)
	}
}

func TestLoadRowsRoundTrip(t *testing.T) {
	src := NewTable(2)
	src.Register("node-1", addr(1), 8)
	src.Register("node-2", addr(2), 8)

	dst := NewTable(0)
	dst.LoadRows(src.K(), src.Rows())

	if dst.K() != 2 {
		t.Fatalf("expected K=2 after LoadRows, got %d", dst.K())
	}
	if dst.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes after LoadRows, got %d", dst.NodeCount())
	}

	key := "round-trip-key"
	if fmt.Sprint(src.PreferenceList(key)) != fmt.Sprint(dst.PreferenceList(key)) {
		t.Fatalf("preference lists differ after LoadRows round trip")
	}
}

func TestCoordinatorEmptyRing(t *testing.T) {
	tbl := NewTable(3)
	if got := tbl.Coordinator("key"); got != "" {
		t.Fatalf("expected empty coordinator on empty ring, got %q", got)
	}
}

func TestNodeIDsSorted(t *testing.T) {
	tbl := NewTable(3)
	tbl.Register("node-c", addr(3), 4)
	tbl.Register("node-a", addr(1), 4)
	tbl.Register("node-b", addr(2), 4)

	ids := tbl.NodeIDs()
	want := []string{"node-a", "node-b", "node-c"}
	for i, id := range ids {
		if id != want[i] {
			t.Fatalf("expected sorted ids %v, got %v", want, ids)
		}
	}
}

func TestLoadDistributionRoughlyBalanced(t *testing.T) {
	tbl := NewTable(3)
	const nodeCount = 8
	for i := 0; i < nodeCount; i++ {
		tbl.Register(fmt.Sprintf("node-%d", i), addr(i), 256)
	}

	counts := make(map[string]int)
	const keyCount = 8000
	for i := 0; i < keyCount; i++ {
		key := fmt.Sprintf("key-%d", i)
		counts[tbl.Coordinator(key)]++
	}

	avg := keyCount / nodeCount
	for id, count := range counts {
		deviation := float64(count-avg) / float64(avg)
		if deviation > 0.4 || deviation < -0.4 {
			t.Errorf("node %s got %d keys (%.1f%% deviation from average)", id, count, deviation*100)
		}
	}
}
