package common

import (
	"fmt"
)

// Row is an ordered tuple of typed values matching a row schema.
type Row struct {
	Datums []Datum
}

func NewRow(datums []Datum) Row {
	return Row{Datums: datums}
}

// Timestamp reads the row's timestamp column per schema.TimestampIndex.
func (r Row) Timestamp(schema *Schema) (int64, error) {
	if schema.TimestampIndex < 0 || schema.TimestampIndex >= len(r.Datums) {
		return 0, errIndexOutOfRange
	}
	return r.Datums[schema.TimestampIndex].AsTimestamp(), nil
}

// RowGroup is an ordered, finite, immutable sequence of rows sharing one
// schema.
type RowGroup struct {
	schema *Schema
	rows []Row
}

func NewRowGroup(schema *Schema, rows []Row) *RowGroup {
	return &RowGroup{schema: schema, rows: rows}
}

func (g *RowGroup) Schema() *Schema { return g.schema }
func (g *RowGroup) NumRows() int { return len(g.rows) }
func (g *RowGroup) Row(i int) Row { return g.rows[i] }

// RowGroupSlicer is a half-open [Begin, End) index range over a RowGroup. It
// is itself immutable and behaves as a RowGroup restricted to the range.
type RowGroupSlicer struct {
	group *RowGroup
	begin int
	end int
}

// FullSlicer returns a slicer covering the entire row group.
func FullSlicer(group *RowGroup) RowGroupSlicer {
	return RowGroupSlicer{group: group, begin: 0, end: group.NumRows()}
}

// NewRowGroupSlicer constructs a slicer over [begin, end) of group.
func NewRowGroupSlicer(group *RowGroup, begin, end int) RowGroupSlicer {
	if begin < 0 || end > group.NumRows() || begin > end {
		panic(fmt.Sprintf("invalid row group slice [%d, %d) over %d rows", begin, end, group.NumRows()))
	}
	return RowGroupSlicer{group: group, begin: begin, end: end}
}

func (s RowGroupSlicer) Schema() *Schema { return s.group.Schema() }
func (s RowGroupSlicer) NumRows() int { return s.end - s.begin }
func (s RowGroupSlicer) IsEmpty() bool { return s.NumRows() == 0 }
func (s RowGroupSlicer) Row(i int) Row { return s.group.Row(s.begin + i) }
func (s RowGroupSlicer) Range() (int, int) { return s.begin, s.end }

// EncodedRow is the byte serialization of one row against the table schema.
type EncodedRow []byte

// EncodeRowForWAL serializes row (which conforms to the writer's schema)
// against tableSchema using idx to locate each destination column's source
// value, falling back to the column default (or NULL) when idx marks a
// column as unsupplied (-1).
func EncodeRowForWAL(row Row, tableSchema *Schema, idx IndexInWriterSchema) (EncodedRow, error) {
	buf := make([]byte, 0, 16*len(tableSchema.Columns))
	for i, col := range tableSchema.Columns {
		srcIdx := idx.Indexes[i]
		var d Datum
		if srcIdx >= 0 {
			d = row.Datums[srcIdx]
		} else {
			d = resolvedDefault(col)
		}
		buf = encodeDatum(buf, d)
	}
	return buf, nil
}

func encodeDatum(buf []byte, d Datum) []byte {
	var nullByte byte
	if d.Null {
		nullByte = 1
	}
	buf = append(buf, nullByte)
	if d.Null {
		return buf
	}
	switch d.Kind {
	case KindBool:
		var b byte
		if d.AsBool() {
			b = 1
		}
		return append(buf, b)
	case KindInt64, KindTimestamp:
		return AppendUint64ToBufferLE(buf, uint64(d.AsInt64()))
	case KindFloat64:
		return AppendUint64ToBufferLE(buf, uint64(int64(d.AsFloat64()*1e9)))
	case KindString:
		return AppendStringToBufferLE(buf, d.AsString())
	case KindBytes:
		b := d.AsBytes()
		buf = AppendUint32ToBufferLE(buf, uint32(len(b)))
		return append(buf, b...)
	default:
		return buf
	}
}

// EncodeRowGroupForWAL encodes every row in group against tableSchema, in
// order. The returned slice always has len == group.NumRows.
func EncodeRowGroupForWAL(group *RowGroup, tableSchema *Schema, idx IndexInWriterSchema) ([]EncodedRow, error) {
	out := make([]EncodedRow, group.NumRows())
	for i := 0; i < group.NumRows(); i++ {
		enc, err := EncodeRowForWAL(group.Row(i), tableSchema, idx)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}
