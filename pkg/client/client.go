// Package client implements gtstore's client role: a cached routing table
// plus get/put operations that walk a key's preference list, retrying the
// next replica and refreshing the table on any transport failure
// (spec.md §4.2).
//
// Grounded on tripab-toy-dynamo/pkg/dynamo/node.go's Get/Put retry shape,
// adapted from the teacher's single-process coordinator role to gtstore's
// standalone client: this Client never serves inbound traffic, it only
// dials out.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/dreamware/gtstore/pkg/gtstoreerr"
	"github.com/dreamware/gtstore/pkg/ring"
	"github.com/dreamware/gtstore/pkg/wire"
	"go.uber.org/zap"
)

const (
	maxKeyBytes   = 20
	maxValueBytes = 1000
)

// Client caches a routing table snapshot and issues get/put against the
// ring on the caller's behalf. It is not safe for concurrent use by
// multiple goroutines at once (spec.md §5: "single-threaded per logical
// client"); run one Client per logical client process or goroutine.
type Client struct {
	id          string
	managerAddr string
	dialTimeout time.Duration

	mu    sync.RWMutex
	table *ring.Table

	logger *zap.Logger
}

// New builds a client bound to managerAddr. Call Init before any Get/Put
// to populate the routing table cache.
func New(id, managerAddr string, logger *zap.Logger) *Client {
	return &Client{
		id:          id,
		managerAddr: managerAddr,
		dialTimeout: 2 * time.Second,
		table:       ring.NewTable(1),
		logger:      logger,
	}
}

// Init connects to the manager, sends CLIENT_HELLO, and caches the
// returned (ring, K) (spec.md §4.2).
func (c *Client) Init() error {
	reply, err := wire.Roundtrip(c.managerAddr, c.dialTimeout, wire.CLIENT_HELLO, nil)
	if err != nil {
		return gtstoreerr.Wrap(gtstoreerr.Transport, "client init: contact manager", err)
	}
	return c.applyTablePush(reply)
}

func (c *Client) applyTablePush(msg wire.Message) error {
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
	newTable := ring.NewTable(k)
	newTable.LoadRows(k, ringRows)

	c.mu.Lock()
	c.table = newTable
	c.mu.Unlock()
	return nil
}

// refresh re-fetches the routing table from the manager, logging (not
// failing) on error — a stale table just means the next attempt also
// misses and eventually exhausts the preference list (spec.md §4.2: "any
// transport error causes an eager refresh").
func (c *Client) refresh() {
	reply, err := wire.Roundtrip(c.managerAddr, c.dialTimeout, wire.CLIENT_HELLO, nil)
	if err != nil {
		c.logger.Warn("client: table refresh failed", zap.Error(err))
		return
	}
	if err := c.applyTablePush(reply); err != nil {
		c.logger.Warn("client: table refresh decode failed", zap.Error(err))
	}
}

func (c *Client) snapshot() *ring.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

func validateKey(key string) error {
	if len(key) == 0 || len(key) > maxKeyBytes {
		return gtstoreerr.New(gtstoreerr.BadKey, fmt.Sprintf("key length %d out of bounds [1,%d]", len(key), maxKeyBytes))
	}
	return nil
}

func validateValueList(values []string) error {
	joined := wire.JoinValueList(values)
	if len(joined) > maxValueBytes {
		return gtstoreerr.New(gtstoreerr.BadValue, fmt.Sprintf("value length %d exceeds %d", len(joined), maxValueBytes))
	}
	return nil
}

// preferenceAddrs resolves a key's preference list (capped at L =
// min(K, distinct physicals), spec.md §4.2) to dial addresses, in order.
func preferenceAddrs(table *ring.Table, key string) []ring.Address {
	ids := table.PreferenceList(key)
	addrs := make([]ring.Address, 0, len(ids))
	for _, id := range ids {
		if addr, ok := table.Addr(id); ok {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// Get walks key's preference list, opening a fresh connection per
// attempt and trying the next replica on any failure (connect, send, or
// mismatched reply type), refreshing the table first (spec.md §4.2).
// Returns the value list from the first successful reply, or an empty
// (nil) list if every attempt failed.
func (c *Client) Get(key string) ([]string, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	table := c.snapshot()
	for _, addr := range preferenceAddrs(table, key) {
		dial := fmt.Sprintf("%s:%d", addr.Host, addr.Port)
		reply, err := wire.Roundtrip(dial, c.dialTimeout, wire.CLIENT_GET, []byte(key))
		if err != nil || reply.Type != wire.GET_OK {
			if err != nil {
				c.logger.Warn("client: GET attempt failed", zap.String("addr", dial), zap.Error(err))
			} else {
				c.logger.Warn("client: GET attempt refused", zap.String("addr", dial), zap.String("reply_type", reply.Type.String()))
			}
			c.refresh()
			continue
		}
		return wire.SplitValueList(string(reply.Payload)), nil
	}
	return nil, nil
}

// Put serializes key and values and walks the preference list, sending
// CLIENT_PUT to each replica in turn until one acknowledges with PUT_OK
// (spec.md §4.2: "Success means any one replica acknowledged"). Returns
// false once every replica in the preference list has been tried and
// failed.
func (c *Client) Put(key string, values []string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if err := validateValueList(values); err != nil {
		return false, err
	}

	payload := []byte(wire.EncodePutPayload([]wire.KV{{Key: key, Value: wire.JoinValueList(values)}}))

	table := c.snapshot()
	for _, addr := range preferenceAddrs(table, key) {
		dial := fmt.Sprintf("%s:%d", addr.Host, addr.Port)
		reply, err := wire.Roundtrip(dial, c.dialTimeout, wire.CLIENT_PUT, payload)
		if err != nil || reply.Type != wire.PUT_OK {
			if err != nil {
				c.logger.Warn("client: PUT attempt failed", zap.String("addr", dial), zap.Error(err))
			} else {
				c.logger.Warn("client: PUT attempt refused", zap.String("addr", dial), zap.String("reply_type", reply.Type.String()), zap.ByteString("payload", reply.Payload))
			}
			c.refresh()
			continue
		}
		return true, nil
	}
	return false, nil
}

// Delete issues CLIENT_DELETE for key against the first replica that
// accepts it, walking the preference list the same way Get/Put do. Not
// part of spec.md's client contract directly, but exposed for library
// callers that need to clean up test data; cmd/client has no delete
// option.
func (c *Client) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	payload := []byte(wire.EncodeKeysPayload([]string{key}))

	table := c.snapshot()
	for _, addr := range preferenceAddrs(table, key) {
		dial := fmt.Sprintf("%s:%d", addr.Host, addr.Port)
		reply, err := wire.Roundtrip(dial, c.dialTimeout, wire.CLIENT_DELETE, payload)
		if err != nil || reply.Type != wire.DELETE_OK {
			c.refresh()
			continue
		}
		return true, nil
	}
	return false, nil
}

// Finalize is a no-op beyond logging (spec.md §4.2): the client holds no
// persistent connections or resources to release between operations.
func (c *Client) Finalize() {
	c.logger.Debug("client: finalize", zap.String("client_id", c.id))
}
