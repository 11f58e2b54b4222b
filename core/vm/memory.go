package vm

import "math/big"

// Memory is a frame's byte-addressable scratch space. It only ever grows,
// in 32-byte word increments; the quadratic expansion charge is applied by
// the gas tables before Resize is called, so the methods here assume the
// requested region has already been paid for.
type Memory struct {
	store []byte
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Set copies value into [offset, offset+size). The region must already be
// within bounds; writing past the end is an invariant violation, not a
// recoverable error.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	if offset+size > uint64(len(m.store)) {
		panic("memory: out of bounds write")
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes val as a 32-byte big-endian word at offset, zero-filling
// the leading bytes.
func (m *Memory) Set32(offset uint64, val *big.Int) {
	if offset+32 > uint64(len(m.store)) {
		panic("memory: out of bounds write")
	}
	b := val.Bytes()
	clear(m.store[offset : offset+32-uint64(len(b))])
	copy(m.store[offset+32-uint64(len(b)):offset+32], b)
}

// Resize grows memory to at least size bytes. Shrinking never happens.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// Get returns a copy of [offset, offset+size).
func (m *Memory) Get(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, m.store[offset:offset+size])
	return out
}

// GetPtr returns the region in place; callers must not retain it across
// a Resize.
func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Len reports the current memory size in bytes.
func (m *Memory) Len() int {
	return len(m.store)
}

// Data exposes the whole backing slice for tracers.
func (m *Memory) Data() []byte {
	return m.store
}
