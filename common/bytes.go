package common

import (
	"encoding/binary"
	"io"
	"sync/atomic"
	"unsafe"
)

// AppendUint64ToBufferLE appends v to buf in little-endian order.
func AppendUint64ToBufferLE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// AppendUint64ToBufferBE appends v to buf in big-endian order. Used for keys
// that must sort in numeric order as raw bytes.
func AppendUint64ToBufferBE(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// AppendUint32ToBufferLE appends v to buf in little-endian order.
func AppendUint32ToBufferLE(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// AppendStringToBufferLE appends a length-prefixed (uint32 LE) string.
func AppendStringToBufferLE(buf []byte, s string) []byte {
	buf = AppendUint32ToBufferLE(buf, uint32(len(s)))
	return append(buf, s...)
}

// ReadUint64FromBufferLE reads a little-endian uint64 at offset.
func ReadUint64FromBufferLE(buf []byte, offset int) (uint64, int) {
	return binary.LittleEndian.Uint64(buf[offset : offset+8]), offset + 8
}

// ReadUint64FromBufferBE reads a big-endian uint64 at offset.
func ReadUint64FromBufferBE(buf []byte, offset int) (uint64, int) {
	return binary.BigEndian.Uint64(buf[offset : offset+8]), offset + 8
}

// ReadUint32FromBufferLE reads a little-endian uint32 at offset.
func ReadUint32FromBufferLE(buf []byte, offset int) (uint32, int) {
	return binary.LittleEndian.Uint32(buf[offset : offset+4]), offset + 4
}

// ReadStringFromBufferLE reads a length-prefixed (uint32 LE) string.
func ReadStringFromBufferLE(buf []byte, offset int) (string, int) {
	l, offset := ReadUint32FromBufferLE(buf, offset)
	s := string(buf[offset : offset+int(l)])
	return s, offset + int(l)
}

// CopyByteSlice returns a copy of b. Needed whenever the source buffer may be
// reused by its owner (e.g. a pebble iterator) after the call returns.
func CopyByteSlice(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// ByteSliceToStringZeroCopy reinterprets b as a string without copying.
// The caller must not mutate b afterward.
func ByteSliceToStringZeroCopy(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToByteSliceZeroCopy reinterprets s as a []byte without copying.
// The caller must not mutate the result.
func StringToByteSliceZeroCopy(s string) []byte {
	if len(s) == 0 {
		return []byte{}
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// IncrementBytesBigEndian returns the lexicographically next byte slice,
// used to advance a scan's start key past the last key returned.
func IncrementBytesBigEndian(b []byte) []byte {
	next := CopyByteSlice(b)
	next = append(next, 0)
	return next
}

// InvokeCloser closes c if it is non-nil, swallowing the error. Used in defer
// position right after a call that may return a nil closer alongside a
// not-found result.
func InvokeCloser(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// AtomicBool is a small wrapper around atomic int32 giving Get/Set/CompareAndSet.
type AtomicBool struct {
	v int32
}

func (a *AtomicBool) Get() bool {
	return atomic.LoadInt32(&a.v) != 0
}

func (a *AtomicBool) Set(b bool) {
	var v int32
	if b {
		v = 1
	}
	atomic.StoreInt32(&a.v, v)
}

func (a *AtomicBool) CompareAndSet(old, new bool) bool {
	var oldV, newV int32
	if old {
		oldV = 1
	}
	if new {
		newV = 1
	}
	return atomic.CompareAndSwapInt32(&a.v, oldV, newV)
}

// ByteSliceMap is a map keyed by the string-view of a []byte, used where a
// real []byte key type would be illegal as a map key.
type ByteSliceMap struct {
	m map[string][]byte
}

func NewByteSliceMap() *ByteSliceMap {
	return &ByteSliceMap{m: make(map[string][]byte)}
}

func (b *ByteSliceMap) Put(k, v []byte) {
	b.m[string(k)] = v
}

func (b *ByteSliceMap) Get(k []byte) ([]byte, bool) {
	v, ok := b.m[string(k)]
	return v, ok
}
