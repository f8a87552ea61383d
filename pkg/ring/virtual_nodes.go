package ring

// Address is a storage node's dial target.
type Address struct {
	Host string
	Port uint16
}

// VirtualNode is one point on the ring: a token plus the physical node it
// belongs to. A physical node owns vnodesPerNode of these (the count
// passed to Table.Register), minted by hashing its node id together with
// an index (spec.md §3).
type VirtualNode struct {
	PhysicalNodeID string
	Addr           Address
	Token          uint64
}

// Row is the ring's wire-agnostic view of one VirtualNode, shaped to match
// the TABLE_PUSH row grammar ("node_id,host,port,token") one field at a
// time. The manager, client and storage node convert between Row and
// wire.TableRow; ring itself never imports the wire package so it stays
// usable standalone (the same split the teacher keeps between pkg/ring
// and pkg/rpc).
type Row struct {
	NodeID string
	Host   string
	Port   uint16
	Token  uint64
}

func vnodeToRow(v VirtualNode) Row {
	return Row{NodeID: v.PhysicalNodeID, Host: v.Addr.Host, Port: v.Addr.Port, Token: v.Token}
}

func rowToVnode(r Row) VirtualNode {
	return VirtualNode{PhysicalNodeID: r.NodeID, Addr: Address{Host: r.Host, Port: r.Port}, Token: r.Token}
}
