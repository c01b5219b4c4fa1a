package wal

import (
	"github.com/aetherdb/engine/common"
)

// PayloadVersion is the only wire version this engine writes; replay must
// reject anything else.
const PayloadVersion uint32 = 0

// EncodeWalPayload serializes (version, table schema, encoded rows). The
// *table* schema is carried, not the writer's, so that replay succeeds
// even if the producer's schema has since diverged.
func EncodeWalPayload(tableSchema *common.Schema, rows []common.EncodedRow) []byte {
	buf := common.AppendUint32ToBufferLE(nil, PayloadVersion)
	buf = encodeSchema(buf, tableSchema)
	buf = common.AppendUint32ToBufferLE(buf, uint32(len(rows)))
	for _, r := range rows {
		buf = common.AppendUint32ToBufferLE(buf, uint32(len(r)))
		buf = append(buf, r...)
	}
	return buf
}

func encodeSchema(buf []byte, schema *common.Schema) []byte {
	buf = common.AppendUint32ToBufferLE(buf, uint32(len(schema.Columns)))
	for _, col := range schema.Columns {
		buf = common.AppendStringToBufferLE(buf, col.Name)
		buf = append(buf, byte(col.Kind))
		var flags byte
		if col.Nullable {
			flags |= 1
		}
		if col.IsKey {
			flags |= 2
		}
		buf = append(buf, flags)
	}
	buf = common.AppendUint32ToBufferLE(buf, uint32(schema.TimestampIndex))
	return buf
}
