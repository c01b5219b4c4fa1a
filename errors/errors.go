// Package errors is aetherdb's error taxonomy for the table write path and
// cluster membership subsystems. It wraps github.com/pkg/errors so that every
// error returned from this module carries a stack trace back to its origin,
// the same way upstream callers expect from WithStack/Errorf.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Error is a plain string error, for cases with no useful cause to wrap.
func Error(msg string) error {
	return pkgerrors.New(msg)
}

// Errorf formats a new error with a stack trace attached.
func Errorf(format string, args...interface{}) error {
	return pkgerrors.Errorf(format, args...)
}

// WithStack attaches a stack trace to err, even if it already carries one.
// Passing nil returns nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

// MaybeAddStack attaches a stack trace to err unless it is nil.
func MaybeAddStack(err error) error {
	return WithStack(err)
}

// TooManyRowsError — validate stage: request.row_group.num_rows >= MAX_ROWS_TO_WRITE.
type TooManyRowsError struct {
	Table string
	Rows int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("too many rows to write (more than limit), table:%s, rows:%d", e.Table, e.Rows)
}

// NewTooManyRows constructs a TooManyRowsError with a stack trace.
func NewTooManyRows(table string, rows int) error {
	return pkgerrors.WithStack(&TooManyRowsError{Table: table, Rows: rows})
}

// WriteDroppedTableError — preprocess stage: table.is_dropped.
type WriteDroppedTableError struct {
	Table string
}

func (e *WriteDroppedTableError) Error() string {
	return fmt.Sprintf("try to write to a dropped table, table:%s", e.Table)
}

func NewWriteDroppedTable(table string) error {
	return pkgerrors.WithStack(&WriteDroppedTableError{Table: table})
}

// IncompatSchemaError — preprocess stage: schema compatibility check failed.
type IncompatSchemaError struct {
	Table string
	Cause error
}

func (e *IncompatSchemaError) Error() string {
	return fmt.Sprintf("schema of request is incompatible with table %s: %v", e.Table, e.Cause)
}

func (e *IncompatSchemaError) Unwrap() error { return e.Cause }

func NewIncompatSchema(table string, cause error) error {
	return pkgerrors.WithStack(&IncompatSchemaError{Table: table, Cause: cause})
}

// FlushTableError — flush submission failed.
type FlushTableError struct {
	Table string
	Cause error
}

func (e *FlushTableError) Error() string {
	return fmt.Sprintf("failed to flush table, table:%s, err:%v", e.Table, e.Cause)
}

func (e *FlushTableError) Unwrap() error { return e.Cause }

func NewFlushTable(table string, cause error) error {
	return pkgerrors.WithStack(&FlushTableError{Table: table, Cause: cause})
}

// BackgroundFlushFailedError — a previously scheduled flush failed and
// subsequent writes must be rejected until an operator intervenes.
type BackgroundFlushFailedError struct {
	Msg string
}

func (e *BackgroundFlushFailedError) Error() string {
	return fmt.Sprintf("background flush failed, cannot write more data, err:%s", e.Msg)
}

func NewBackgroundFlushFailed(msg string) error {
	return pkgerrors.WithStack(&BackgroundFlushFailedError{Msg: msg})
}

// EncodeRowGroupError — encode stage failure.
type EncodeRowGroupError struct {
	Cause error
}

func (e *EncodeRowGroupError) Error() string {
	return fmt.Sprintf("failed to encode row group, err:%v", e.Cause)
}

func (e *EncodeRowGroupError) Unwrap() error { return e.Cause }

func NewEncodeRowGroup(cause error) error {
	return pkgerrors.WithStack(&EncodeRowGroupError{Cause: cause})
}

// EncodePayloadsError — WAL payload encoding failure.
type EncodePayloadsError struct {
	Table string
	WalLocation string
	Cause error
}

func (e *EncodePayloadsError) Error() string {
	return fmt.Sprintf("failed to encode payloads, table:%s, wal_location:%s, err:%v", e.Table, e.WalLocation, e.Cause)
}

func (e *EncodePayloadsError) Unwrap() error { return e.Cause }

func NewEncodePayloads(table, walLocation string, cause error) error {
	return pkgerrors.WithStack(&EncodePayloadsError{Table: table, WalLocation: walLocation, Cause: cause})
}

// WriteLogBatchError — WAL manager rejected the append.
type WriteLogBatchError struct {
	Table string
	Cause error
}

func (e *WriteLogBatchError) Error() string {
	return fmt.Sprintf("failed to write to wal, table:%s, err:%v", e.Table, e.Cause)
}

func (e *WriteLogBatchError) Unwrap() error { return e.Cause }

func NewWriteLogBatch(table string, cause error) error {
	return pkgerrors.WithStack(&WriteLogBatchError{Table: table, Cause: cause})
}

// WriteMemTableError — memtable insertion failure.
type WriteMemTableError struct {
	Table string
	Cause error
}

func (e *WriteMemTableError) Error() string {
	return fmt.Sprintf("failed to write to memtable, table:%s, err:%v", e.Table, e.Cause)
}

func (e *WriteMemTableError) Unwrap() error { return e.Cause }

func NewWriteMemTable(table string, cause error) error {
	return pkgerrors.WithStack(&WriteMemTableError{Table: table, Cause: cause})
}

// FindMutableMemTableError — no mutable memtable could be allocated for a timestamp.
type FindMutableMemTableError struct {
	Table string
	Cause error
}

func (e *FindMutableMemTableError) Error() string {
	return fmt.Sprintf("failed to find mutable memtable, table:%s, err:%v", e.Table, e.Cause)
}

func (e *FindMutableMemTableError) Unwrap() error { return e.Cause }

func NewFindMutableMemTable(table string, cause error) error {
	return pkgerrors.WithStack(&FindMutableMemTableError{Table: table, Cause: cause})
}

// UpdateMemTableSequenceError — set_last_sequence failed on a memtable.
type UpdateMemTableSequenceError struct {
	Cause error
}

func (e *UpdateMemTableSequenceError) Error() string {
	return fmt.Sprintf("failed to update sequence of memtable, err:%v", e.Cause)
}

func (e *UpdateMemTableSequenceError) Unwrap() error { return e.Cause }

func NewUpdateMemTableSequence(cause error) error {
	return pkgerrors.WithStack(&UpdateMemTableSequenceError{Cause: cause})
}

// ShardNotFoundError — cluster op referenced a shard id missing from the cache.
type ShardNotFoundError struct {
	Msg string
}

func (e *ShardNotFoundError) Error() string { return e.Msg }

func NewShardNotFound(msg string) error {
	return pkgerrors.WithStack(&ShardNotFoundError{Msg: msg})
}

// TableNotFoundError — table_info missing from a shard lifecycle request.
type TableNotFoundError struct {
	Msg string
}

func (e *TableNotFoundError) Error() string { return e.Msg }

func NewTableNotFound(msg string) error {
	return pkgerrors.WithStack(&TableNotFoundError{Msg: msg})
}

// InternalError — an invariant the caller should never see violated.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return e.Msg }

func NewInternal(msg string) error {
	return pkgerrors.WithStack(&InternalError{Msg: msg})
}

// OpenShardError — open_shard failed: version conflict or meta service error.
type OpenShardError struct {
	ShardID uint64
	Msg string
	Cause error
}

func (e *OpenShardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to open shard %d: %s: %v", e.ShardID, e.Msg, e.Cause)
	}
	return fmt.Sprintf("failed to open shard %d: %s", e.ShardID, e.Msg)
}

func (e *OpenShardError) Unwrap() error { return e.Cause }

func NewOpenShard(shardID uint64, msg string) error {
	return pkgerrors.WithStack(&OpenShardError{ShardID: shardID, Msg: msg})
}

func NewOpenShardWithCause(shardID uint64, cause error) error {
	return pkgerrors.WithStack(&OpenShardError{ShardID: shardID, Msg: "meta service call failed", Cause: cause})
}

// InvalidArgumentsError — construction-time validation failure (e.g. bad etcd root path).
type InvalidArgumentsError struct {
	Msg string
}

func (e *InvalidArgumentsError) Error() string { return e.Msg }

func NewInvalidArguments(msg string) error {
	return pkgerrors.WithStack(&InvalidArgumentsError{Msg: msg})
}
