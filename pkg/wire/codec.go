package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// KV is one key/value pair as carried in a put payload. Value is already
// the comma-joined serialization of the client's value-list (spec.md §3:
// "the value exposed to clients is a list of strings; the serialized form
// on the wire joins them with ','").
type KV struct {
	Key   string
	Value string
}

// EncodePutPayload builds a CLIENT_PUT / REPL_PUT payload: one or more
// "key|value" items joined by ';' (spec.md §4.4 payload formats).
func EncodePutPayload(pairs []KV) string {
	items := make([]string, len(pairs))
	for i, kv := range pairs {
		items[i] = kv.Key + "|" + kv.Value
	}
	return strings.Join(items, ";")
}

// DecodePutPayload parses a put payload into its (key, value) pairs.
func DecodePutPayload(payload string) ([]KV, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty put payload")
	}
	items := strings.Split(payload, ";")
	pairs := make([]KV, 0, len(items))
	for _, item := range items {
		idx := strings.IndexByte(item, '|')
		if idx < 0 {
			return nil, fmt.Errorf("malformed put item %q: missing '|'", item)
		}
		pairs = append(pairs, KV{Key: item[:idx], Value: item[idx+1:]})
	}
	return pairs, nil
}

// JoinValueList serializes a client value-list for the wire.
func JoinValueList(values []string) string {
	return strings.Join(values, ",")
}

// SplitValueList parses a wire value back into a client value-list.
// An empty string decodes to an empty (not nil) list.
func SplitValueList(value string) []string {
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}

// EncodeKeysPayload builds a CLIENT_DELETE / MANAGER_GET / MANAGER_DELETE
// request payload: keys joined by ';'.
func EncodeKeysPayload(keys []string) string {
	return strings.Join(keys, ";")
}

// DecodeKeysPayload parses a ';'-joined key list. An empty payload decodes
// to an empty (not nil) slice.
func DecodeKeysPayload(payload string) []string {
	if payload == "" {
		return []string{}
	}
	return strings.Split(payload, ";")
}

// EncodeAllKeysPayload builds an ALL_KEYS reply payload: keys joined by ','
// (spec.md §4.4: "reply ALL_KEYS with ','-joined keys").
func EncodeAllKeysPayload(keys []string) string {
	return strings.Join(keys, ",")
}

// DecodeAllKeysPayload is the inverse of EncodeAllKeysPayload.
func DecodeAllKeysPayload(payload string) []string {
	if payload == "" {
		return []string{}
	}
	return strings.Split(payload, ",")
}

// EncodeManagerGetReply builds a MANAGER_GET GET_OK reply payload: values
// joined by ';' in the same order as the request's keys (spec.md §4.4).
func EncodeManagerGetReply(values []string) string {
	return strings.Join(values, ";")
}

// DecodeManagerGetReply is the inverse of EncodeManagerGetReply.
func DecodeManagerGetReply(payload string) []string {
	if payload == "" {
		return []string{}
	}
	return strings.Split(payload, ";")
}

// TableRow is one ring row in the table payload grammar.
type TableRow struct {
	NodeID string
	Host   string
	Port   uint16
	Token  uint64
}

// EncodeTablePayload builds a TABLE_PUSH payload: "K#row1;row2;…", each
// row "node_id,host,port,token" (spec.md §4.4).
func EncodeTablePayload(k uint32, rows []TableRow) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = fmt.Sprintf("%s,%s,%d,%d", row.NodeID, row.Host, row.Port, row.Token)
	}
	return strconv.FormatUint(uint64(k), 10) + "#" + strings.Join(parts, ";")
}

// DecodeTablePayload is the inverse of EncodeTablePayload.
func DecodeTablePayload(payload string) (k uint32, rows []TableRow, err error) {
	idx := strings.IndexByte(payload, '#')
	if idx < 0 {
		return 0, nil, fmt.Errorf("malformed table payload: missing '#'")
	}
	kVal, err := strconv.ParseUint(payload[:idx], 10, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("malformed table payload: bad K: %w", err)
	}
	body := payload[idx+1:]
	if body == "" {
		return uint32(kVal), nil, nil
	}
	items := strings.Split(body, ";")
	rows = make([]TableRow, 0, len(items))
	for _, item := range items {
		fields := strings.Split(item, ",")
		if len(fields) != 4 {
			return 0, nil, fmt.Errorf("malformed table row %q", item)
		}
		port, err := strconv.ParseUint(fields[2], 10, 16)
		if err != nil {
			return 0, nil, fmt.Errorf("malformed table row %q: bad port: %w", item, err)
		}
		token, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("malformed table row %q: bad token: %w", item, err)
		}
		rows = append(rows, TableRow{NodeID: fields[0], Host: fields[1], Port: uint16(port), Token: token})
	}
	return uint32(kVal), rows, nil
}
