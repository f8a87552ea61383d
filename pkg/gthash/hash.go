// Package gthash provides the single, fixed hash function used everywhere a
// ring position is needed: virtual-node token generation and key routing.
//
// The original gtstore used the platform's default std::hash<string>, which
// is seeded per-process and therefore disagrees between the manager and
// every storage node. xxhash.Sum64 is deterministic across processes and
// platforms, which is load-bearing for ring agreement (spec.md §9).
package gthash

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Sum64 hashes the UTF-8 bytes of s into a stable, deterministic 64-bit
// value. Every actor that needs a ring position — the manager minting
// virtual-node tokens, a storage node or client routing a key — must call
// this and only this.
func Sum64(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Sum64Bytes is the []byte counterpart of Sum64.
func Sum64Bytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// VirtualNodeToken derives the token for the i-th virtual node of a
// physical node, per spec.md §3: hash(node_id ‖ i).
func VirtualNodeToken(nodeID string, i int) uint64 {
	return Sum64(nodeID + "\x00" + strconv.Itoa(i))
}
