// Zero-reflection fast paths for the encodings the hot paths produce
// constantly: unsigned integers, raw byte strings, fixed-width hashes and
// addresses, and list headers. The reflection-based encoder in encode.go
// funnels through the Append variants so the canonical-form rules are not
// duplicated.
package rlp

import "encoding/binary"

// AppendUint64 appends the RLP encoding of v to dst.
func AppendUint64(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, 0x80)
	}
	if v < 128 {
		return append(dst, byte(v))
	}
	b := putUintBE(v)
	dst = append(dst, 0x80+byte(len(b)))
	return append(dst, b...)
}

// AppendBytes appends the RLP string encoding of data to dst.
func AppendBytes(dst, data []byte) []byte {
	n := len(data)
	if n == 1 && data[0] <= 0x7f {
		return append(dst, data[0])
	}
	if n <= 55 {
		dst = append(dst, 0x80+byte(n))
		return append(dst, data...)
	}
	lb := putUintBE(uint64(n))
	dst = append(dst, 0xb7+byte(len(lb)))
	dst = append(dst, lb...)
	return append(dst, data...)
}

// AppendListHeader appends a list header for a payload of payloadSize
// bytes. The caller must append exactly that many bytes of encoded items
// afterwards.
func AppendListHeader(dst []byte, payloadSize int) []byte {
	if payloadSize <= 55 {
		return append(dst, 0xc0+byte(payloadSize))
	}
	lb := putUintBE(uint64(payloadSize))
	dst = append(dst, 0xf7+byte(len(lb)))
	return append(dst, lb...)
}

// EncodeUint64 returns the RLP encoding of v.
func EncodeUint64(v uint64) []byte {
	return AppendUint64(nil, v)
}

// EncodeBytes32 encodes a 32-byte value (hash, storage key) as the
// 33-byte string form 0xa0 ‖ data.
func EncodeBytes32(data [32]byte) []byte {
	buf := make([]byte, 33)
	buf[0] = 0x80 + 32
	copy(buf[1:], data[:])
	return buf
}

// EncodeBytes20 encodes a 20-byte value (address) as the 21-byte string
// form 0x94 ‖ data.
func EncodeBytes20(data [20]byte) []byte {
	buf := make([]byte, 21)
	buf[0] = 0x80 + 20
	copy(buf[1:], data[:])
	return buf
}

// putUintBE encodes u as big-endian with no leading zeros. The zero value
// keeps one byte so callers can rely on a non-empty result.
func putUintBE(u uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	for i := 0; i < 7; i++ {
		if buf[i] != 0 {
			return buf[i:]
		}
	}
	return buf[7:]
}
