// Package wal defines the write-ahead log capability the write path appends
// to and a pebble-backed production implementation: turning an encoded
// batch into a durable *pebble.Batch write.
package wal

import (
	"context"

	"github.com/aetherdb/engine/cluster"
)

// SequenceNumber is the monotone identifier the WAL assigns on each
// successful append, scoped to one WalLocation.
type SequenceNumber = uint64

// WalLocation identifies the log a batch is appended to: one per (table,
// shard).
type WalLocation struct {
	TableID uint64
	ShardInfo cluster.ShardInfo
}

// LogBatch is an opaque encoded payload plus the location it is destined
// for. Manager implementations are free to choose their own on-disk framing;
// the write path only ever deals in Payload bytes produced by EncodeWalPayload.
type LogBatch struct {
	Location WalLocation
	Payload []byte
}

// Manager is the WAL capability interface: append a batch, get it a
// sequence number, and report diagnostics. Implementations must never assign
// a sequence number for a write that does not durably complete.
type Manager interface {
	Write(ctx context.Context, batch LogBatch) (SequenceNumber, error)
	GetStatistics() string
}
