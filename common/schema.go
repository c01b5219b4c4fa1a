package common

import (
	"fmt"

	"github.com/aetherdb/engine/errors"
)

// DatumKind is the logical type of a column value.
type DatumKind int

const (
	KindBool DatumKind = iota
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindTimestamp
)

func (k DatumKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// assignableFrom reports whether a value of kind src may be written into a
// column of kind dst without loss, per the write-schema compatibility rule.
func assignableFrom(dst, src DatumKind) bool {
	if dst == src {
		return true
	}
	// int64 columns may widen-accept nothing else; timestamps are a distinct
	// domain from plain int64 even though both are 8-byte integers, because
	// mixing them up silently would corrupt time partitioning.
	return false
}

// Datum is a single typed column value. A Datum with Null set (and Kind
// set) represents SQL NULL.
type Datum struct {
	Kind DatumKind
	Null bool
	boolV bool
	int64V int64
	floatV float64
	stringV string
	bytesV []byte
}

func NewBoolDatum(v bool) Datum { return Datum{Kind: KindBool, boolV: v} }
func NewInt64Datum(v int64) Datum { return Datum{Kind: KindInt64, int64V: v} }
func NewFloat64Datum(v float64) Datum { return Datum{Kind: KindFloat64, floatV: v} }
func NewStringDatum(v string) Datum { return Datum{Kind: KindString, stringV: v} }
func NewBytesDatum(v []byte) Datum { return Datum{Kind: KindBytes, bytesV: v} }
func NewTimestampDatum(v int64) Datum { return Datum{Kind: KindTimestamp, int64V: v} }
func NewNullDatum(kind DatumKind) Datum { return Datum{Kind: kind, Null: true} }

func (d Datum) AsBool() bool { return d.boolV }
func (d Datum) AsInt64() int64 { return d.int64V }
func (d Datum) AsFloat64() float64 { return d.floatV }
func (d Datum) AsString() string { return d.stringV }
func (d Datum) AsBytes() []byte { return d.bytesV }
func (d Datum) AsTimestamp() int64 { return d.int64V }

// ColumnSchema describes one column: its name, logical type, nullability and
// key/value role.
type ColumnSchema struct {
	Name string
	Kind DatumKind
	Nullable bool
	IsKey bool // part of the primary key
	Default *Datum
}

// Schema is an ordered list of columns plus a designated timestamp column.
type Schema struct {
	Columns []ColumnSchema
	TimestampIndex int
}

// ColumnIndex returns the index of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// IndexInWriterSchema maps each destination (table) schema column to either a
// source (writer) column index, or -1 meaning "use the column's default".
type IndexInWriterSchema struct {
	Indexes []int
}

// CompatibleForWrite computes the IndexInWriterSchema mapping this (table,
// destination) schema's columns onto src's (writer) columns. A destination
// column is satisfiable if it exists by name in src with an assignable type,
// or if it has a default value (or is nullable, which makes NULL an implicit
// default). Returns an error identifying the first unsatisfiable column.
func (s *Schema) CompatibleForWrite(src *Schema) (IndexInWriterSchema, error) {
	idx := IndexInWriterSchema{Indexes: make([]int, len(s.Columns))}
	for i, dstCol := range s.Columns {
		srcIdx := src.ColumnIndex(dstCol.Name)
		if srcIdx >= 0 {
			srcCol := src.Columns[srcIdx]
			if !assignableFrom(dstCol.Kind, srcCol.Kind) {
				return idx, fmt.Errorf("column %q: cannot assign %s into %s", dstCol.Name, srcCol.Kind, dstCol.Kind)
			}
			idx.Indexes[i] = srcIdx
			continue
		}
		if dstCol.Default != nil || dstCol.Nullable {
			idx.Indexes[i] = -1
			continue
		}
		return idx, fmt.Errorf("column %q: required but missing from writer schema and has no default", dstCol.Name)
	}
	return idx, nil
}

// resolvedDefault returns the value to use for a destination column that the
// writer's row did not supply.
func resolvedDefault(col ColumnSchema) Datum {
	if col.Default != nil {
		return *col.Default
	}
	return NewNullDatum(col.Kind)
}

// errIndexOutOfRange is returned by Row.Timestamp when the schema's
// TimestampIndex does not exist in the row — an internal-invariant
// violation, never expected to occur on a well-formed RowGroup.
var errIndexOutOfRange = errors.Error("timestamp column index out of range")
